package memory

import (
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
)

// Store bundles the in-memory repositories so callers can reach the concrete types,
// e.g. to seed the fee directory.
type Store struct {
	Accounts       *AccountRepository
	Entries        *EntryRepository
	Revenue        *RevenueRepository
	Reconciliation *ReconciliationRepository
	Fees           *FeeDirectory
	Audit          *AuditLog
}

// NewStore creates an empty set of in-memory repositories.
func NewStore() *Store {
	return &Store{
		Accounts:       NewAccountRepository(),
		Entries:        NewEntryRepository(),
		Revenue:        NewRevenueRepository(),
		Reconciliation: NewReconciliationRepository(),
		Fees:           NewFeeDirectory(),
		Audit:          NewAuditLog(),
	}
}

// Provider exposes the store through the repository ports.
func (s *Store) Provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:        s.Accounts,
		EntryRepo:          s.Entries,
		RevenueRepo:        s.Revenue,
		ReconciliationRepo: s.Reconciliation,
		FeeDirectory:       s.Fees,
		AuditSink:          s.Audit,
	}
}
