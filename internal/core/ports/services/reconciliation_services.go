package services

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
)

// ReconciliationSvc queues and resolves repairs of derived values.
type ReconciliationSvc interface {
	Enqueue(ctx context.Context, task domain.ReconciliationTask) error

	// Sweep resolves up to limit pending tasks and returns how many were resolved.
	Sweep(ctx context.Context, limit int) (int, error)
}
