package services

import (
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider, identity portssvc.IdentityResolver) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Account = NewAccountService(
		repos.AccountRepo,
		WithAccountIdentityResolver(identity),
		WithAccountEntryReader(repos.EntryRepo),
	)

	container.Revenue = NewRevenueAggregator(repos.RevenueRepo, repos.EntryRepo)
	container.Reconciliation = NewReconciliationService(repos.ReconciliationRepo, container.Revenue, container.Account)

	container.Ledger = NewLedgerService(
		repos.EntryRepo,
		container.Account,
		container.Revenue,
		WithLedgerIdentityResolver(identity),
		WithReconciliation(container.Reconciliation),
		WithAuditSink(repos.AuditSink),
	)

	container.Reporting = NewReportingService(
		repos.EntryRepo,
		container.Account,
		container.Revenue,
		repos.FeeDirectory,
		WithReportingIdentityResolver(identity),
	)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.AccountSvcFacade     = (*accountService)(nil)
	_ portssvc.LedgerSvcFacade      = (*ledgerService)(nil)
	_ portssvc.RevenueAggregatorSvc = (*revenueAggregator)(nil)
	_ portssvc.ReportingSvc         = (*reportingService)(nil)
	_ portssvc.ReconciliationSvc    = (*reconciliationService)(nil)
)
