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
	"github.com/google/uuid"
)

const defaultSweepLimit = 100

// reconciliationService queues repairs of derived values and replays them on demand.
type reconciliationService struct {
	BaseService
	repo       portsrepo.ReconciliationRepository
	aggregator portssvc.RevenueAggregatorSvc
	accounts   portssvc.AccountBalanceSvc
	now        func() time.Time
}

// NewReconciliationService creates the reconciliation service.
func NewReconciliationService(repo portsrepo.ReconciliationRepository, aggregator portssvc.RevenueAggregatorSvc, accounts portssvc.AccountBalanceSvc) portssvc.ReconciliationSvc {
	return &reconciliationService{
		repo:       repo,
		aggregator: aggregator,
		accounts:   accounts,
		now:        time.Now,
	}
}

var _ portssvc.ReconciliationSvc = (*reconciliationService)(nil)

func (s *reconciliationService) Enqueue(ctx context.Context, task domain.ReconciliationTask) error {
	if task.Kind != domain.ReconcileBucket && task.Kind != domain.ReconcileAccount {
		return fmt.Errorf("%w: unknown reconciliation kind %q", apperrors.ErrValidation, task.Kind)
	}
	if task.Kind == domain.ReconcileAccount && task.AccountID == "" {
		return fmt.Errorf("%w: account task without account id", apperrors.ErrValidation)
	}
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	task.Status = domain.ReconciliationPending
	task.CreatedAt = s.now().UTC()
	task.Bucket.MonthStart = domain.MonthStart(task.Bucket.MonthStart)

	if err := s.repo.EnqueueTask(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue reconciliation task: %w", err)
	}
	s.LogInfo(ctx, "Reconciliation task queued",
		slog.String("task_id", task.TaskID),
		slog.String("kind", string(task.Kind)),
		slog.String("entry_id", task.EntryID))
	return nil
}

// Sweep recomputes each pending bucket or account at most once and resolves every task
// that pointed at it. Tasks whose repair fails stay pending for the next sweep.
func (s *reconciliationService) Sweep(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	tasks, err := s.repo.ListPendingTasks(ctx, limit)
	if err != nil {
		s.LogError(ctx, err, "Failed to list pending reconciliation tasks")
		return 0, fmt.Errorf("failed to list pending reconciliation tasks: %w", err)
	}

	repaired := map[string]bool{}
	resolved := 0
	for _, task := range tasks {
		target := task.AccountID
		if task.Kind == domain.ReconcileBucket {
			target = task.Bucket.String()
		}
		target = string(task.Kind) + ":" + target

		if !repaired[target] {
			if err := s.repair(ctx, task); err != nil {
				s.LogError(ctx, err, "Reconciliation task failed, leaving it pending",
					slog.String("task_id", task.TaskID),
					slog.String("kind", string(task.Kind)))
				continue
			}
			repaired[target] = true
		}

		if err := s.repo.MarkTaskResolved(ctx, task.TaskID, s.now().UTC()); err != nil {
			s.LogError(ctx, err, "Failed to mark reconciliation task resolved", slog.String("task_id", task.TaskID))
			continue
		}
		resolved++
	}

	s.LogInfo(ctx, "Reconciliation sweep finished",
		slog.Int("pending", len(tasks)),
		slog.Int("resolved", resolved))
	return resolved, nil
}

func (s *reconciliationService) repair(ctx context.Context, task domain.ReconciliationTask) error {
	switch task.Kind {
	case domain.ReconcileBucket:
		_, err := s.aggregator.Recompute(ctx, task.Bucket)
		return err
	case domain.ReconcileAccount:
		_, err := s.accounts.RecomputeBalance(ctx, task.AccountID)
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, err, "Account no longer exists, nothing to reconcile", slog.String("account_id", task.AccountID))
			return nil
		}
		return err
	}
	return fmt.Errorf("%w: unknown reconciliation kind %q", apperrors.ErrValidation, task.Kind)
}
