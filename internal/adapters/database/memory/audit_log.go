package memory

import (
	"context"
	"sync"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
)

// AuditLog keeps audit records in memory in emission order.
type AuditLog struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

// NewAuditLog creates an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

var _ portsrepo.AuditSink = (*AuditLog)(nil)

func (l *AuditLog) RecordAudit(ctx context.Context, record domain.AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

// Records returns a copy of everything recorded so far.
func (l *AuditLog) Records() []domain.AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.AuditRecord(nil), l.records...)
}
