package repositories

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
)

// AuditSink receives one record per successful ledger mutation.
type AuditSink interface {
	RecordAudit(ctx context.Context, record domain.AuditRecord) error
}
