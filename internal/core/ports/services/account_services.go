package services

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccountByID retrieves an account of the caller's school.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a paginated list of the caller's school accounts.
	ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount sets up a new account for the caller's school.
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error)
}

// AccountBalanceSvc is the balance-keeping side used by the ledger pipeline and reconciliation.
type AccountBalanceSvc interface {
	// ApplyDelta atomically adds delta to the balance and returns the new balance.
	ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal, enforceNonNegative bool) (decimal.Decimal, error)

	AttachEntry(ctx context.Context, accountID string, entryID string) error
	DetachEntry(ctx context.Context, accountID string, entryID string) error

	// RecomputeBalance rebuilds the balance from the account's live entries.
	RecomputeBalance(ctx context.Context, accountID string) (*domain.Account, error)
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
	AccountBalanceSvc
}
