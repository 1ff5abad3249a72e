package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
)

// ReconciliationRepository is an in-memory task queue.
type ReconciliationRepository struct {
	mu    sync.Mutex
	tasks map[string]domain.ReconciliationTask
}

// NewReconciliationRepository creates an empty queue.
func NewReconciliationRepository() *ReconciliationRepository {
	return &ReconciliationRepository{tasks: make(map[string]domain.ReconciliationTask)}
}

var _ portsrepo.ReconciliationRepository = (*ReconciliationRepository)(nil)

func (r *ReconciliationRepository) EnqueueTask(ctx context.Context, task domain.ReconciliationTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.TaskID]; exists {
		return fmt.Errorf("%w: reconciliation task %s", apperrors.ErrDuplicate, task.TaskID)
	}
	r.tasks[task.TaskID] = task
	return nil
}

func (r *ReconciliationRepository) ListPendingTasks(ctx context.Context, limit int) ([]domain.ReconciliationTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []domain.ReconciliationTask
	for _, t := range r.tasks {
		if t.Status == domain.ReconciliationPending {
			pending = append(pending, t)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].TaskID < pending[j].TaskID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *ReconciliationRepository) MarkTaskResolved(ctx context.Context, taskID string, resolvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: reconciliation task %s", apperrors.ErrNotFound, taskID)
	}
	t.Status = domain.ReconciliationResolved
	t.ResolvedAt = &resolvedAt
	r.tasks[taskID] = t
	return nil
}

// All returns every task regardless of status.
func (r *ReconciliationRepository) All() []domain.ReconciliationTask {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ReconciliationTask, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out
}
