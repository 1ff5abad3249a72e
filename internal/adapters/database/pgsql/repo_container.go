package pgsql

import (
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:        newPgxAccountRepository(dbPool),
		EntryRepo:          newPgxEntryRepository(dbPool),
		RevenueRepo:        newPgxRevenueRepository(dbPool),
		ReconciliationRepo: newPgxReconciliationRepository(dbPool),
		FeeDirectory:       newPgxFeeDirectory(dbPool),
		AuditSink:          newPgxAuditRepository(dbPool),
	}
}
