package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxAuditRepository appends audit records to the audit_logs table.
type PgxAuditRepository struct {
	BaseRepository
}

func newPgxAuditRepository(pool *pgxpool.Pool) *PgxAuditRepository {
	return &PgxAuditRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AuditSink = (*PgxAuditRepository)(nil)

func (r *PgxAuditRepository) RecordAudit(ctx context.Context, record domain.AuditRecord) error {
	query := `
		INSERT INTO audit_logs (audit_id, school_id, action_type, entity_id, entity_type, performed_by, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.Pool.Exec(ctx, query,
		uuid.NewString(),
		record.SchoolID,
		string(record.ActionType),
		record.EntityID,
		record.EntityType,
		record.PerformedBy,
		record.Message,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record for %s: %w", record.EntityID, err)
	}
	return nil
}
