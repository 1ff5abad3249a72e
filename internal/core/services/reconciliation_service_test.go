package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/school_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) ApplyDelta(ctx context.Context, schoolID, sessionID, termID string, postedAt time.Time, delta decimal.Decimal) error {
	return m.Called(schoolID, postedAt.Format("2006-01"), delta.String()).Error(0)
}

func (m *mockAggregator) Query(ctx context.Context, key domain.BucketKey) (decimal.Decimal, error) {
	args := m.Called(key.String())
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockAggregator) QueryYear(ctx context.Context, schoolID, sessionID, termID string, year int) ([12]decimal.Decimal, error) {
	args := m.Called(schoolID, year)
	return args.Get(0).([12]decimal.Decimal), args.Error(1)
}

func (m *mockAggregator) Recompute(ctx context.Context, key domain.BucketKey) (decimal.Decimal, error) {
	args := m.Called(key.String())
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func bucketTask(month time.Month) domain.ReconciliationTask {
	return domain.ReconciliationTask{
		Kind:           domain.ReconcileBucket,
		Bucket:         domain.NewBucketKey(testSchool, testSession, testTerm, day(2024, month, 17)),
		EntryID:        "entry-" + month.String(),
		AttemptedDelta: decimal.NewFromInt(5),
		Reason:         "connection refused",
	}
}

func TestReconciliationService_Enqueue(t *testing.T) {
	store := memory.NewStore()
	svc := NewReconciliationService(store.Reconciliation, &mockAggregator{}, nil)
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, bucketTask(time.March)))
	tasks, err := store.Reconciliation.ListPendingTasks(ctx, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.NotEmpty(t, tasks[0].TaskID)
	assert.Equal(t, domain.ReconciliationPending, tasks[0].Status)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), tasks[0].Bucket.MonthStart)
	assert.False(t, tasks[0].CreatedAt.IsZero())

	err = svc.Enqueue(ctx, domain.ReconciliationTask{Kind: domain.ReconcileAccount})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	err = svc.Enqueue(ctx, domain.ReconciliationTask{Kind: "JOURNAL"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReconciliationService_SweepRepairsEachTargetOnce(t *testing.T) {
	store := memory.NewStore()
	agg := &mockAggregator{}
	march, april := bucketTask(time.March), bucketTask(time.April)
	agg.On("Recompute", march.Bucket.String()).Return(decimal.NewFromInt(10), nil).Once()
	agg.On("Recompute", april.Bucket.String()).Return(decimal.Zero, errors.New("statement timeout")).Once()

	svc := NewReconciliationService(store.Reconciliation, agg, nil)
	ctx := context.Background()
	require.NoError(t, svc.Enqueue(ctx, march))
	require.NoError(t, svc.Enqueue(ctx, march))
	require.NoError(t, svc.Enqueue(ctx, april))

	resolved, err := svc.Sweep(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved, "both march tasks resolve from one recompute")
	agg.AssertExpectations(t)

	pending, err := store.Reconciliation.ListPendingTasks(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1, "failed repairs stay queued")
	assert.Equal(t, april.Bucket, pending[0].Bucket)

	agg.On("Recompute", april.Bucket.String()).Return(decimal.NewFromInt(3), nil).Once()
	resolved, err = svc.Sweep(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	all := store.Reconciliation.All()
	require.Len(t, all, 3)
	for _, task := range all {
		assert.Equal(t, domain.ReconciliationResolved, task.Status)
		assert.NotNil(t, task.ResolvedAt)
	}
}

func TestReconciliationService_SweepHonoursLimit(t *testing.T) {
	store := memory.NewStore()
	agg := &mockAggregator{}
	agg.On("Recompute", mock.Anything).Return(decimal.Zero, nil)
	svc := NewReconciliationService(store.Reconciliation, agg, nil)
	ctx := context.Background()

	for _, m := range []time.Month{time.January, time.February, time.March} {
		require.NoError(t, svc.Enqueue(ctx, bucketTask(m)))
	}
	resolved, err := svc.Sweep(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)

	pending, err := store.Reconciliation.ListPendingTasks(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestReconciliationService_MissingAccountIsResolved(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.reconciliation.Enqueue(h.ctx, domain.ReconciliationTask{
		Kind:      domain.ReconcileAccount,
		AccountID: "closed-account",
		EntryID:   "entry-1",
		Reason:    "connection reset",
	}))

	resolved, err := h.reconciliation.Sweep(h.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Empty(t, pendingTasks(t, h))
}
