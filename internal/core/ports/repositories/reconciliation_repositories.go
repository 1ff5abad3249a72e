package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/school_ledger/internal/core/domain"
)

// ReconciliationRepository stores pending repair tasks.
type ReconciliationRepository interface {
	EnqueueTask(ctx context.Context, task domain.ReconciliationTask) error

	// ListPendingTasks returns up to limit PENDING tasks, oldest first.
	ListPendingTasks(ctx context.Context, limit int) ([]domain.ReconciliationTask, error)

	MarkTaskResolved(ctx context.Context, taskID string, resolvedAt time.Time) error
}
