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
	"github.com/SscSPs/school_ledger/internal/utils"
	"github.com/SscSPs/school_ledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	stepAccount      = "account"
	stepAggregator   = "aggregator"
	stepCompensation = "compensation"
)

// ledgerService orchestrates entry writes, account balances and revenue buckets.
// The entry write is the commit point: once it succeeds the remaining steps run to completion
// regardless of caller cancellation.
type ledgerService struct {
	BaseService
	entryRepo  portsrepo.EntryRepositoryFacade
	accounts   portssvc.AccountSvcFacade
	aggregator portssvc.RevenueAggregatorSvc
	reconciler portssvc.ReconciliationSvc
	audit      portsrepo.AuditSink
	txnIDs     portssvc.TransactionIDGenerator
	now        func() time.Time
}

// LedgerServiceOption is a functional option for configuring the ledger service
type LedgerServiceOption func(*ledgerService)

// WithLedgerIdentityResolver sets how the acting user is resolved
func WithLedgerIdentityResolver(resolver portssvc.IdentityResolver) LedgerServiceOption {
	return func(s *ledgerService) {
		s.Identity = resolver
	}
}

// WithReconciliation sets where failed post-commit steps are queued
func WithReconciliation(reconciler portssvc.ReconciliationSvc) LedgerServiceOption {
	return func(s *ledgerService) {
		s.reconciler = reconciler
	}
}

// WithAuditSink sets where audit records are emitted
func WithAuditSink(sink portsrepo.AuditSink) LedgerServiceOption {
	return func(s *ledgerService) {
		s.audit = sink
	}
}

// WithTransactionIDGenerator overrides the payment reference generator
func WithTransactionIDGenerator(gen portssvc.TransactionIDGenerator) LedgerServiceOption {
	return func(s *ledgerService) {
		s.txnIDs = gen
	}
}

// WithLedgerClock overrides the clock used for audit timestamps and default posting dates
func WithLedgerClock(now func() time.Time) LedgerServiceOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// NewLedgerService creates a new ledger service with the provided options
func NewLedgerService(entryRepo portsrepo.EntryRepositoryFacade, accounts portssvc.AccountSvcFacade, aggregator portssvc.RevenueAggregatorSvc, options ...LedgerServiceOption) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		entryRepo:  entryRepo,
		accounts:   accounts,
		aggregator: aggregator,
		txnIDs:     utils.NewTransactionIDGenerator(),
		now:        time.Now,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) GetEntry(ctx context.Context, kind domain.EntryKind, entryID string) (*domain.LedgerEntry, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.findOwnedEntry(ctx, identity, kind, entryID)
}

func (s *ledgerService) PostEntry(ctx context.Context, kind domain.EntryKind, req dto.PostEntryRequest) (*domain.LedgerEntry, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown entry kind %q", apperrors.ErrValidation, kind)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry, err := s.buildEntry(identity, kind, req, now)
	if err != nil {
		return nil, err
	}

	if entry.HasAccount() {
		account, err := s.accounts.GetAccountByID(ctx, entry.AccountID)
		if err != nil {
			return nil, err
		}
		if !account.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, account.AccountID)
		}
		if contribution := entry.Contribution(); accounting.RequiresFundsCheck(entry.Kind, contribution) &&
			account.Balance.Add(contribution).IsNegative() {
			return nil, fmt.Errorf("%w: account %s balance %s cannot cover %s", apperrors.ErrInsufficientFunds,
				account.AccountID, utils.FormatMoney(account.Balance), utils.FormatMoney(entry.Amount))
		}
	}

	if kind.IsPayment() {
		txnID, err := s.txnIDs.Generate()
		if err != nil {
			s.LogError(ctx, err, "Failed to generate transaction id")
			return nil, fmt.Errorf("%w: failed to generate transaction id", apperrors.ErrInternal)
		}
		entry.TransactionID = txnID
	}

	// Step 1: entry write. Nothing else has happened yet, so failures propagate as-is.
	if err := s.entryRepo.CreateEntry(ctx, entry); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicate) {
			s.LogError(ctx, err, "Failed to create ledger entry",
				slog.String("entry_id", entry.EntryID),
				slog.String("kind", string(kind)))
		}
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	// Step 2: account balance.
	for _, d := range accounting.AccountDeltas(nil, &entry) {
		if _, err := s.accounts.ApplyDelta(ctx, d.AccountID, d.Delta, d.EnforceNonNegative); err != nil {
			return nil, s.compensateCreate(ctx, entry, d, err)
		}
	}
	// Entries that do not count yet are still referenced by their account.
	if entry.HasAccount() {
		if err := s.accounts.AttachEntry(ctx, entry.AccountID, entry.EntryID); err != nil {
			s.LogError(ctx, err, "Failed to attach entry to account",
				slog.String("entry_id", entry.EntryID),
				slog.String("account_id", entry.AccountID))
			s.flagAccount(ctx, entry, entry.AccountID, decimal.Zero, err)
		}
	}

	// Step 3: revenue buckets. Failures are repaired later, the post stands.
	s.applyBucketDeltas(ctx, entry, accounting.BucketDeltas(nil, &entry))

	s.recordAudit(ctx, entry, domain.ActionCreate, identity.UserID, now,
		fmt.Sprintf("Posted %s of %s", entry.Kind, utils.FormatMoney(entry.Amount)))

	s.LogInfo(ctx, "Ledger entry posted",
		slog.String("entry_id", entry.EntryID),
		slog.String("kind", string(entry.Kind)),
		slog.String("amount", entry.Amount.String()))
	return &entry, nil
}

func (s *ledgerService) EditEntry(ctx context.Context, kind domain.EntryKind, entryID string, req dto.EditEntryRequest) (*domain.LedgerEntry, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown entry kind %q", apperrors.ErrValidation, kind)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	patch := req.ToPatch()
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrValidation)
	}

	current, err := s.findOwnedEntry(ctx, identity, kind, entryID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: entry %s is %s and can no longer be edited", apperrors.ErrConflict, entryID, current.Status)
	}
	if patch.Status != nil && !current.Status.CanMoveTo(*patch.Status) {
		return nil, fmt.Errorf("%w: entry %s cannot move from %s to %s", apperrors.ErrConflict, entryID, current.Status, *patch.Status)
	}
	if err := validatePatch(*current, patch); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	// Step 1: entry write. The store hands back the image it replaced.
	prev, err := s.entryRepo.UpdateEntry(ctx, kind, entryID, patch, identity.UserID, now)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to update ledger entry", slog.String("entry_id", entryID))
		}
		return nil, err
	}
	next := prev.Apply(patch)
	next.ActionType = domain.ActionUpdate
	next.ModFlag = true
	next.LastUpdatedAt = now
	next.LastUpdatedBy = identity.UserID

	ctx = context.WithoutCancel(ctx)

	// Step 2: account balance, net of old and new contribution.
	for _, d := range accounting.AccountDeltas(prev, &next) {
		if _, err := s.accounts.ApplyDelta(ctx, d.AccountID, d.Delta, d.EnforceNonNegative); err != nil {
			return nil, s.compensateUpdate(ctx, *prev, next, d, err)
		}
	}

	// Step 3: one or two bucket deltas.
	s.applyBucketDeltas(ctx, next, accounting.BucketDeltas(prev, &next))

	s.recordAudit(ctx, next, domain.ActionUpdate, identity.UserID, now,
		fmt.Sprintf("Edited %s: amount %s -> %s, status %s -> %s", next.Kind,
			utils.FormatMoney(prev.Amount), utils.FormatMoney(next.Amount), prev.Status, next.Status))

	s.LogInfo(ctx, "Ledger entry edited",
		slog.String("entry_id", entryID),
		slog.String("kind", string(kind)))
	return &next, nil
}

func (s *ledgerService) VoidEntry(ctx context.Context, kind domain.EntryKind, entryID string) (*domain.LedgerEntry, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown entry kind %q", apperrors.ErrValidation, kind)
	}
	if _, err := s.findOwnedEntry(ctx, identity, kind, entryID); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	// Step 1: soft delete. Its result is the last known contribution to reverse.
	removed, err := s.entryRepo.DeleteEntry(ctx, kind, entryID, identity.UserID, now)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to delete ledger entry", slog.String("entry_id", entryID))
		}
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	// Step 2: reverse the balance. The void has committed, so failures are queued, not returned.
	for _, d := range accounting.AccountDeltas(removed, nil) {
		if _, err := s.accounts.ApplyDelta(ctx, d.AccountID, d.Delta, false); err != nil {
			s.LogError(ctx, err, "Failed to reverse account balance for voided entry",
				slog.String("entry_id", entryID),
				slog.String("account_id", d.AccountID),
				slog.String("delta", d.Delta.String()))
			s.flagAccount(ctx, *removed, d.AccountID, d.Delta, err)
		}
	}
	if removed.HasAccount() {
		if err := s.accounts.DetachEntry(ctx, removed.AccountID, removed.EntryID); err != nil {
			s.LogError(ctx, err, "Failed to detach voided entry",
				slog.String("entry_id", entryID),
				slog.String("account_id", removed.AccountID))
			s.flagAccount(ctx, *removed, removed.AccountID, decimal.Zero, err)
		}
	}

	// Step 3: reverse the bucket.
	s.applyBucketDeltas(ctx, *removed, accounting.BucketDeltas(removed, nil))

	voided := *removed
	voided.DelFlag = true
	voided.ActionType = domain.ActionDelete
	voided.LastUpdatedAt = now
	voided.LastUpdatedBy = identity.UserID

	s.recordAudit(ctx, voided, domain.ActionDelete, identity.UserID, now,
		fmt.Sprintf("Voided %s of %s", voided.Kind, utils.FormatMoney(voided.Amount)))

	s.LogInfo(ctx, "Ledger entry voided",
		slog.String("entry_id", entryID),
		slog.String("kind", string(kind)))
	return &voided, nil
}

func (s *ledgerService) findOwnedEntry(ctx context.Context, identity *domain.Identity, kind domain.EntryKind, entryID string) (*domain.LedgerEntry, error) {
	entry, err := s.entryRepo.FindEntryByID(ctx, kind, entryID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find ledger entry", slog.String("entry_id", entryID))
		}
		return nil, err
	}
	if entry.SchoolID != identity.SchoolID {
		return nil, fmt.Errorf("%w: entry %s", apperrors.ErrNotFound, entryID)
	}
	return entry, nil
}

// buildEntry turns a request into a new entry, checking kind-specific rules.
func (s *ledgerService) buildEntry(identity *domain.Identity, kind domain.EntryKind, req dto.PostEntryRequest, now time.Time) (domain.LedgerEntry, error) {
	postedAt := now
	if req.PostedAt != nil {
		postedAt = *req.PostedAt
	}

	status := req.Status
	if status == "" {
		status = domain.StatusCompleted
	}

	entry := domain.LedgerEntry{
		EntryID:     uuid.NewString(),
		Kind:        kind,
		SchoolID:    identity.SchoolID,
		AccountID:   req.AccountID,
		SessionID:   req.SessionID,
		TermID:      req.TermID,
		Amount:      req.Amount,
		PostedAt:    postedAt,
		Status:      status,
		Description: req.Description,
		ActionType:  domain.ActionCreate,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     identity.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: identity.UserID,
		},
	}

	switch kind {
	case domain.KindDeposit:
		entry.Reference = req.Reference
	case domain.KindExpense:
		entry.Category = req.Category
	default:
		entry.StudentID = req.StudentID
		entry.ClassID = req.ClassID
		if entry.StudentID == "" || entry.ClassID == "" {
			return entry, fmt.Errorf("%w: studentID and classID are required for %s", apperrors.ErrValidation, kind)
		}
	}

	if len(req.FeeLines) > 0 {
		if kind != domain.KindFeesPayment {
			return entry, fmt.Errorf("%w: fee lines are only accepted on %s", apperrors.ErrValidation, domain.KindFeesPayment)
		}
		entry.FeeLines = dto.ToFeeLinePayments(req.FeeLines)
		if entry.Amount.IsZero() {
			entry.Amount = entry.FeeLinesPaid()
		}
	}

	if err := validateEntry(entry); err != nil {
		return entry, err
	}
	return entry, nil
}

func validatePatch(current domain.LedgerEntry, patch domain.EntryPatch) error {
	if patch.FeeLines != nil && current.Kind != domain.KindFeesPayment {
		return fmt.Errorf("%w: fee lines are only accepted on %s", apperrors.ErrValidation, domain.KindFeesPayment)
	}
	return validateEntry(current.Apply(patch))
}

// validateEntry checks the invariants every stored entry must satisfy.
func validateEntry(e domain.LedgerEntry) error {
	if e.SessionID == "" || e.TermID == "" {
		return fmt.Errorf("%w: sessionID and termID are required", apperrors.ErrValidation)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if !fitsMoneyScale(e.Amount) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places", apperrors.ErrValidation, e.Amount.String(), domain.MoneyScale)
	}
	if e.PostedAt.IsZero() {
		return fmt.Errorf("%w: postedAt is required", apperrors.ErrValidation)
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, e.Status)
	}
	if !e.Kind.IsPayment() && e.Status != domain.StatusCompleted {
		return fmt.Errorf("%w: %s entries are always %s", apperrors.ErrValidation, e.Kind, domain.StatusCompleted)
	}
	for _, l := range e.FeeLines {
		if l.Paid.IsNegative() || l.Fine.IsNegative() || l.Discount.IsNegative() {
			return fmt.Errorf("%w: fee line %s has a negative value", apperrors.ErrValidation, l.FeeLineID)
		}
		if !fitsMoneyScale(l.Paid) || !fitsMoneyScale(l.Fine) || !fitsMoneyScale(l.Discount) {
			return fmt.Errorf("%w: fee line %s has more than %d decimal places", apperrors.ErrValidation, l.FeeLineID, domain.MoneyScale)
		}
	}
	if len(e.FeeLines) > 0 && !e.Amount.Equal(e.FeeLinesPaid()) {
		return fmt.Errorf("%w: amount %s does not match fee lines total %s", apperrors.ErrValidation,
			e.Amount.String(), e.FeeLinesPaid().String())
	}
	return nil
}

// fitsMoneyScale reports whether d is stored without rounding.
func fitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(domain.MoneyScale))
}

// compensateCreate undoes a just-created entry after its account step failed.
func (s *ledgerService) compensateCreate(ctx context.Context, entry domain.LedgerEntry, d accounting.AccountDelta, cause error) error {
	if !errors.Is(cause, apperrors.ErrInsufficientFunds) && !errors.Is(cause, apperrors.ErrNotFound) {
		s.LogError(ctx, cause, "Account step failed after entry write, purging entry",
			slog.String("entry_id", entry.EntryID),
			slog.String("account_id", d.AccountID))
	}

	purgeErr := s.entryRepo.PurgeEntry(ctx, entry.Kind, entry.EntryID)
	if purgeErr == nil {
		return cause
	}

	incErr := &apperrors.InconsistencyError{
		Step:           stepCompensation,
		EntryID:        entry.EntryID,
		AccountID:      d.AccountID,
		AttemptedDelta: d.Delta,
		Err:            errors.Join(cause, purgeErr),
	}
	s.LogError(ctx, incErr, "Failed to purge entry after account step failure",
		slog.String("entry_id", entry.EntryID),
		slog.String("account_id", d.AccountID),
		slog.String("attempted_delta", d.Delta.String()))

	// The entry survived, so both derived values must be rebuilt to include it.
	s.flagAccount(ctx, entry, d.AccountID, d.Delta, incErr)
	s.flagBucket(ctx, entry, entry.Bucket(), entry.Contribution(), incErr)
	return incErr
}

// compensateUpdate restores the pre-image after the account step of an edit failed.
func (s *ledgerService) compensateUpdate(ctx context.Context, prev, next domain.LedgerEntry, d accounting.AccountDelta, cause error) error {
	if !errors.Is(cause, apperrors.ErrInsufficientFunds) && !errors.Is(cause, apperrors.ErrNotFound) {
		s.LogError(ctx, cause, "Account step failed after entry update, restoring entry",
			slog.String("entry_id", prev.EntryID),
			slog.String("account_id", d.AccountID))
	}

	restoreErr := s.entryRepo.RestoreEntry(ctx, prev)
	if restoreErr == nil {
		return cause
	}

	incErr := &apperrors.InconsistencyError{
		Step:           stepCompensation,
		EntryID:        prev.EntryID,
		AccountID:      d.AccountID,
		AttemptedDelta: d.Delta,
		Err:            errors.Join(cause, restoreErr),
	}
	s.LogError(ctx, incErr, "Failed to restore entry after account step failure",
		slog.String("entry_id", prev.EntryID),
		slog.String("account_id", d.AccountID),
		slog.String("attempted_delta", d.Delta.String()))

	s.flagAccount(ctx, next, d.AccountID, d.Delta, incErr)
	for _, bd := range accounting.BucketDeltas(&prev, &next) {
		s.flagBucket(ctx, next, bd.Key, bd.Delta, incErr)
	}
	return incErr
}

func (s *ledgerService) applyBucketDeltas(ctx context.Context, entry domain.LedgerEntry, deltas []accounting.BucketDelta) {
	for _, bd := range deltas {
		err := s.aggregator.ApplyDelta(ctx, bd.Key.SchoolID, bd.Key.SessionID, bd.Key.TermID, bd.Key.MonthStart, bd.Delta)
		if err == nil {
			continue
		}
		incErr := &apperrors.InconsistencyError{
			Step:           stepAggregator,
			EntryID:        entry.EntryID,
			AccountID:      entry.AccountID,
			AttemptedDelta: bd.Delta,
			Err:            err,
		}
		s.LogError(ctx, incErr, "Revenue bucket update failed, queued for reconciliation",
			slog.String("entry_id", entry.EntryID),
			slog.String("bucket", bd.Key.String()),
			slog.String("attempted_delta", bd.Delta.String()))
		s.flagBucket(ctx, entry, bd.Key, bd.Delta, incErr)
	}
}

func (s *ledgerService) flagBucket(ctx context.Context, entry domain.LedgerEntry, key domain.BucketKey, delta decimal.Decimal, cause error) {
	s.enqueue(ctx, domain.ReconciliationTask{
		Kind:           domain.ReconcileBucket,
		Bucket:         key,
		EntryID:        entry.EntryID,
		AttemptedDelta: delta,
		Reason:         cause.Error(),
	})
}

func (s *ledgerService) flagAccount(ctx context.Context, entry domain.LedgerEntry, accountID string, delta decimal.Decimal, cause error) {
	s.enqueue(ctx, domain.ReconciliationTask{
		Kind:           domain.ReconcileAccount,
		Bucket:         entry.Bucket(),
		AccountID:      accountID,
		EntryID:        entry.EntryID,
		AttemptedDelta: delta,
		Reason:         cause.Error(),
	})
}

func (s *ledgerService) enqueue(ctx context.Context, task domain.ReconciliationTask) {
	if s.reconciler == nil {
		s.LogWarn(ctx, nil, "No reconciliation queue configured, repair must be triggered manually",
			slog.String("entry_id", task.EntryID),
			slog.String("kind", string(task.Kind)))
		return
	}
	if err := s.reconciler.Enqueue(ctx, task); err != nil {
		s.LogError(ctx, err, "Failed to enqueue reconciliation task",
			slog.String("entry_id", task.EntryID),
			slog.String("kind", string(task.Kind)),
			slog.String("account_id", task.AccountID),
			slog.String("bucket", task.Bucket.String()))
	}
}

func (s *ledgerService) recordAudit(ctx context.Context, entry domain.LedgerEntry, action domain.ActionType, userID string, at time.Time, message string) {
	if s.audit == nil {
		return
	}
	record := domain.AuditRecord{
		SchoolID:    entry.SchoolID,
		ActionType:  action,
		EntityID:    entry.EntryID,
		EntityType:  string(entry.Kind),
		PerformedBy: userID,
		Message:     message,
		Timestamp:   at,
	}
	if err := s.audit.RecordAudit(ctx, record); err != nil {
		s.LogWarn(ctx, err, "Failed to record audit entry",
			slog.String("entry_id", entry.EntryID),
			slog.String("action", string(action)))
	}
}
