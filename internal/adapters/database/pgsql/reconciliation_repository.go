package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/school_ledger/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `task_id, kind, school_id, session_id, term_id, month_start, account_id, entry_id,
	attempted_delta, reason, status, created_at, resolved_at`

type PgxReconciliationRepository struct {
	BaseRepository
}

func newPgxReconciliationRepository(pool *pgxpool.Pool) *PgxReconciliationRepository {
	return &PgxReconciliationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ReconciliationRepository = (*PgxReconciliationRepository)(nil)

func (r *PgxReconciliationRepository) EnqueueTask(ctx context.Context, task domain.ReconciliationTask) error {
	m := models.ReconciliationTask{
		TaskID:         task.TaskID,
		Kind:           string(task.Kind),
		SchoolID:       task.Bucket.SchoolID,
		SessionID:      task.Bucket.SessionID,
		TermID:         task.Bucket.TermID,
		MonthStart:     task.Bucket.MonthStart,
		AccountID:      task.AccountID,
		EntryID:        task.EntryID,
		AttemptedDelta: task.AttemptedDelta,
		Reason:         task.Reason,
		Status:         string(task.Status),
		CreatedAt:      task.CreatedAt,
		ResolvedAt:     task.ResolvedAt,
	}
	query := `
		INSERT INTO reconciliation_tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.TaskID, m.Kind, m.SchoolID, m.SessionID, m.TermID, m.MonthStart, m.AccountID, m.EntryID,
		m.AttemptedDelta, m.Reason, m.Status, m.CreatedAt, m.ResolvedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: reconciliation task %s", apperrors.ErrDuplicate, m.TaskID)
		}
		return fmt.Errorf("failed to insert reconciliation task %s: %w", m.TaskID, err)
	}
	return nil
}

func (r *PgxReconciliationRepository) ListPendingTasks(ctx context.Context, limit int) ([]domain.ReconciliationTask, error) {
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	query := `
		SELECT ` + taskColumns + `
		FROM reconciliation_tasks
		WHERE status = $1
		ORDER BY created_at, task_id
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, string(domain.ReconciliationPending), limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reconciliation tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.ReconciliationTask{}
	for rows.Next() {
		var m models.ReconciliationTask
		err := rows.Scan(&m.TaskID, &m.Kind, &m.SchoolID, &m.SessionID, &m.TermID, &m.MonthStart, &m.AccountID,
			&m.EntryID, &m.AttemptedDelta, &m.Reason, &m.Status, &m.CreatedAt, &m.ResolvedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation task row: %w", err)
		}
		tasks = append(tasks, domain.ReconciliationTask{
			TaskID: m.TaskID,
			Kind:   domain.ReconciliationKind(m.Kind),
			Bucket: domain.BucketKey{
				SchoolID:   m.SchoolID,
				SessionID:  m.SessionID,
				TermID:     m.TermID,
				MonthStart: m.MonthStart.UTC(),
			},
			AccountID:      m.AccountID,
			EntryID:        m.EntryID,
			AttemptedDelta: m.AttemptedDelta,
			Reason:         m.Reason,
			Status:         domain.ReconciliationStatus(m.Status),
			CreatedAt:      m.CreatedAt.UTC(),
			ResolvedAt:     m.ResolvedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reconciliation task rows: %w", err)
	}
	return tasks, nil
}

func (r *PgxReconciliationRepository) MarkTaskResolved(ctx context.Context, taskID string, resolvedAt time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE reconciliation_tasks SET status = $2, resolved_at = $3
		WHERE task_id = $1 AND status = $4;
	`, taskID, string(domain.ReconciliationResolved), resolvedAt, string(domain.ReconciliationPending))
	if err != nil {
		return fmt.Errorf("failed to resolve reconciliation task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pending reconciliation task %s", apperrors.ErrNotFound, taskID)
	}
	return nil
}
