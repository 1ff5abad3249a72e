package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/school_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/SscSPs/school_ledger/internal/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testSchool  = "school-1"
	testSession = "2023/2024"
	testTerm    = "second"
)

// testClock advances one second per reading so creation times are distinct and ordered.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type ledgerHarness struct {
	ctx            context.Context
	store          *memory.Store
	clock          *testClock
	accounts       portssvc.AccountSvcFacade
	revenue        portssvc.RevenueAggregatorSvc
	reconciliation portssvc.ReconciliationSvc
	ledger         portssvc.LedgerSvcFacade
	reporting      portssvc.ReportingSvc
}

// newHarness wires the services over in-memory repositories. override may swap any
// repository for a failure-injecting wrapper around the store's own.
func newHarness(t *testing.T, override func(store *memory.Store, repos *portsrepo.RepositoryProvider)) *ledgerHarness {
	t.Helper()
	store := memory.NewStore()
	repos := store.Provider()
	if override != nil {
		override(store, &repos)
	}
	clock := newTestClock()
	identity := middleware.ContextIdentityResolver{}

	accounts := NewAccountService(repos.AccountRepo,
		WithAccountIdentityResolver(identity),
		WithAccountEntryReader(repos.EntryRepo),
		WithAccountClock(clock.Now))
	revenue := NewRevenueAggregator(repos.RevenueRepo, repos.EntryRepo)
	reconciliation := NewReconciliationService(repos.ReconciliationRepo, revenue, accounts)
	ledger := NewLedgerService(repos.EntryRepo, accounts, revenue,
		WithLedgerIdentityResolver(identity),
		WithReconciliation(reconciliation),
		WithAuditSink(repos.AuditSink),
		WithLedgerClock(clock.Now))
	reporting := NewReportingService(repos.EntryRepo, accounts, revenue, repos.FeeDirectory,
		WithReportingIdentityResolver(identity),
		WithReportingClock(clock.Now))

	return &ledgerHarness{
		ctx:            asUser(testSchool, "bursar-1"),
		store:          store,
		clock:          clock,
		accounts:       accounts,
		revenue:        revenue,
		reconciliation: reconciliation,
		ledger:         ledger,
		reporting:      reporting,
	}
}

func asUser(schoolID, userID string) context.Context {
	return middleware.WithIdentity(context.Background(), domain.Identity{UserID: userID, SchoolID: schoolID})
}

func (h *ledgerHarness) newAccount(t *testing.T) string {
	t.Helper()
	acc, err := h.accounts.CreateAccount(h.ctx, dto.CreateAccountRequest{Name: "Main bank account"})
	require.NoError(t, err)
	return acc.AccountID
}

func (h *ledgerHarness) post(t *testing.T, kind domain.EntryKind, req dto.PostEntryRequest) *domain.LedgerEntry {
	t.Helper()
	entry, err := h.ledger.PostEntry(h.ctx, kind, req)
	require.NoError(t, err)
	return entry
}

func (h *ledgerHarness) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	acc, err := h.store.Accounts.FindAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}

func (h *ledgerHarness) bucket(t *testing.T, postedAt time.Time) decimal.Decimal {
	t.Helper()
	total, err := h.revenue.Query(h.ctx, domain.NewBucketKey(testSchool, testSession, testTerm, postedAt))
	require.NoError(t, err)
	return total
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func depositReq(accountID, amount string, postedAt time.Time) dto.PostEntryRequest {
	return dto.PostEntryRequest{
		AccountID: accountID,
		SessionID: testSession,
		TermID:    testTerm,
		Amount:    amt(amount),
		PostedAt:  &postedAt,
		Reference: "bank-slip",
	}
}

func expenseReq(accountID, amount string, postedAt time.Time) dto.PostEntryRequest {
	req := depositReq(accountID, amount, postedAt)
	req.Reference = ""
	req.Category = "maintenance"
	return req
}

func paymentReq(accountID, amount string, postedAt time.Time, status domain.EntryStatus) dto.PostEntryRequest {
	req := depositReq(accountID, amount, postedAt)
	req.Reference = ""
	req.StudentID = "student-1"
	req.ClassID = "jss1"
	req.Status = status
	return req
}

// flakyAccountRepo fails ApplyDelta on demand and otherwise delegates to memory.
type flakyAccountRepo struct {
	*memory.AccountRepository
	mock.Mock
}

func (r *flakyAccountRepo) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal, enforce bool) (decimal.Decimal, error) {
	args := r.Called(accountID, delta.String())
	if err := args.Error(0); err != nil {
		return decimal.Zero, err
	}
	return r.AccountRepository.ApplyDelta(ctx, accountID, delta, enforce)
}

// flakyEntryRepo fails compensation writes on demand.
type flakyEntryRepo struct {
	*memory.EntryRepository
	mock.Mock
}

func (r *flakyEntryRepo) PurgeEntry(ctx context.Context, kind domain.EntryKind, entryID string) error {
	args := r.Called(kind, entryID)
	if err := args.Error(0); err != nil {
		return err
	}
	return r.EntryRepository.PurgeEntry(ctx, kind, entryID)
}

func (r *flakyEntryRepo) RestoreEntry(ctx context.Context, previous domain.LedgerEntry) error {
	args := r.Called(previous.EntryID)
	if err := args.Error(0); err != nil {
		return err
	}
	return r.EntryRepository.RestoreEntry(ctx, previous)
}

// flakyRevenueRepo fails increments on demand.
type flakyRevenueRepo struct {
	*memory.RevenueRepository
	mock.Mock
}

func (r *flakyRevenueRepo) IncrementRevenue(ctx context.Context, key domain.BucketKey, delta decimal.Decimal) error {
	args := r.Called(key.MonthStart.Format("2006-01"), delta.String())
	if err := args.Error(0); err != nil {
		return err
	}
	return r.RevenueRepository.IncrementRevenue(ctx, key, delta)
}

func pendingTasks(t *testing.T, h *ledgerHarness) []domain.ReconciliationTask {
	t.Helper()
	tasks, err := h.store.Reconciliation.ListPendingTasks(context.Background(), 0)
	require.NoError(t, err)
	return tasks
}
