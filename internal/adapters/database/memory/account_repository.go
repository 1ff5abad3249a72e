package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// AccountRepository is an in-memory implementation of portsrepo.AccountRepositoryFacade.
// A single mutex makes every balance change an atomic increment.
type AccountRepository struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

// NewAccountRepository creates an empty account store.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]domain.Account)}
}

var _ portsrepo.AccountRepositoryFacade = (*AccountRepository)(nil)

func cloneAccount(a domain.Account) domain.Account {
	a.EntryIDs = append([]string(nil), a.EntryIDs...)
	return a
}

func (r *AccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.AccountID]; exists {
		return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, account.AccountID)
	}
	r.accounts[account.AccountID] = cloneAccount(account)
	return nil
}

func (r *AccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	out := cloneAccount(a)
	return &out, nil
}

func (r *AccountRepository) ListAccounts(ctx context.Context, schoolID string, limit int, offset int) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Account
	for _, a := range r.accounts {
		if a.SchoolID == schoolID {
			matched = append(matched, cloneAccount(a))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name == matched[j].Name {
			return matched[i].AccountID < matched[j].AccountID
		}
		return matched[i].Name < matched[j].Name
	})
	if offset >= len(matched) {
		return []domain.Account{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *AccountRepository) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal, enforceNonNegative bool) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	next := a.Balance.Add(delta)
	if enforceNonNegative && next.IsNegative() {
		return a.Balance, fmt.Errorf("%w: account %s balance %s, delta %s", apperrors.ErrInsufficientFunds,
			accountID, a.Balance.String(), delta.String())
	}
	a.Balance = next
	r.accounts[accountID] = a
	return next, nil
}

func (r *AccountRepository) AttachEntry(ctx context.Context, accountID string, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	if a.HasEntry(entryID) {
		return nil
	}
	a.EntryIDs = append(a.EntryIDs, entryID)
	r.accounts[accountID] = a
	return nil
}

func (r *AccountRepository) DetachEntry(ctx context.Context, accountID string, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	kept := a.EntryIDs[:0:0]
	for _, id := range a.EntryIDs {
		if id != entryID {
			kept = append(kept, id)
		}
	}
	a.EntryIDs = kept
	r.accounts[accountID] = a
	return nil
}

func (r *AccountRepository) SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	a.Balance = balance
	r.accounts[accountID] = a
	return nil
}
