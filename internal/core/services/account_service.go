package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/SscSPs/school_ledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
	entryRepo   portsrepo.EntryReader
	now         func() time.Time
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithAccountIdentityResolver sets how the acting user is resolved
func WithAccountIdentityResolver(resolver portssvc.IdentityResolver) AccountServiceOption {
	return func(s *accountService) {
		s.Identity = resolver
	}
}

// WithAccountEntryReader adds the entry reader needed by RecomputeBalance
func WithAccountEntryReader(repo portsrepo.EntryReader) AccountServiceOption {
	return func(s *accountService) {
		s.entryRepo = repo
	}
}

// WithAccountClock overrides the clock used for audit timestamps
func WithAccountClock(now func() time.Time) AccountServiceOption {
	return func(s *accountService) {
		s.now = now
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repo portsrepo.AccountRepositoryFacade, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo: repo,
		now:         time.Now,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	account := domain.Account{
		AccountID:   uuid.NewString(),
		SchoolID:    identity.SchoolID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		Balance:     decimal.Zero,
		EntryIDs:    []string{},
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     identity.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: identity.UserID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account in repository",
			slog.String("account_id", account.AccountID))
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.LogInfo(ctx, "Account created successfully",
		slog.String("account_id", account.AccountID),
		slog.String("school_id", account.SchoolID))
	return &account, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by ID in repository",
				slog.String("account_id", accountID))
		}
		return nil, err
	}
	// Accounts of other schools are reported as missing
	if account.SchoolID != identity.SchoolID {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return account, nil
}

// ListAccounts retrieves a paginated list of the caller's accounts.
func (s *accountService) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := s.accountRepo.ListAccounts(ctx, identity.SchoolID, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts from repository",
			slog.Int("limit", limit), slog.Int("offset", offset))
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

func (s *accountService) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal, enforceNonNegative bool) (decimal.Decimal, error) {
	balance, err := s.accountRepo.ApplyDelta(ctx, accountID, delta, enforceNonNegative)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrInsufficientFunds) {
			s.LogError(ctx, err, "Failed to apply balance delta",
				slog.String("account_id", accountID),
				slog.String("delta", delta.String()))
		}
		return decimal.Zero, err
	}
	s.LogDebug(ctx, "Account balance updated",
		slog.String("account_id", accountID),
		slog.String("delta", delta.String()),
		slog.String("balance", balance.String()))
	return balance, nil
}

func (s *accountService) AttachEntry(ctx context.Context, accountID string, entryID string) error {
	if err := s.accountRepo.AttachEntry(ctx, accountID, entryID); err != nil {
		return fmt.Errorf("failed to attach entry %s to account %s: %w", entryID, accountID, err)
	}
	return nil
}

func (s *accountService) DetachEntry(ctx context.Context, accountID string, entryID string) error {
	if err := s.accountRepo.DetachEntry(ctx, accountID, entryID); err != nil {
		return fmt.Errorf("failed to detach entry %s from account %s: %w", entryID, accountID, err)
	}
	return nil
}

// RecomputeBalance rebuilds the balance and the entry list from the account's live entries.
func (s *accountService) RecomputeBalance(ctx context.Context, accountID string) (*domain.Account, error) {
	if s.entryRepo == nil {
		return nil, fmt.Errorf("%w: account recompute requires an entry reader", apperrors.ErrInternal)
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	entries, err := s.entryRepo.FindEntriesByAccount(ctx, accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load entries for balance recompute", slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to load entries for account %s: %w", accountID, err)
	}

	live := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		live[e.EntryID] = struct{}{}
		if !account.HasEntry(e.EntryID) {
			if err := s.accountRepo.AttachEntry(ctx, accountID, e.EntryID); err != nil {
				return nil, fmt.Errorf("failed to attach entry during recompute: %w", err)
			}
		}
	}
	for _, id := range account.EntryIDs {
		if _, ok := live[id]; !ok {
			if err := s.accountRepo.DetachEntry(ctx, accountID, id); err != nil {
				return nil, fmt.Errorf("failed to detach entry during recompute: %w", err)
			}
		}
	}

	balance := accounting.SumContributions(entries)
	if err := s.accountRepo.SetBalance(ctx, accountID, balance); err != nil {
		s.LogError(ctx, err, "Failed to store recomputed balance", slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to store recomputed balance: %w", err)
	}

	s.LogInfo(ctx, "Account balance recomputed",
		slog.String("account_id", accountID),
		slog.String("previous_balance", account.Balance.String()),
		slog.String("balance", balance.String()))

	return s.accountRepo.FindAccountByID(ctx, accountID)
}
