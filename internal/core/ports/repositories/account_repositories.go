package repositories

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a paginated list of accounts for a given school.
	ListAccounts(ctx context.Context, schoolID string, limit int, offset int) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// ApplyDelta adds delta to the balance in one atomic step and returns the new balance.
	// With enforceNonNegative set, a result below zero fails with ErrInsufficientFunds and
	// leaves the balance untouched.
	ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal, enforceNonNegative bool) (decimal.Decimal, error)

	// AttachEntry appends entryID to the account's entry list. Attaching twice is a no-op.
	AttachEntry(ctx context.Context, accountID string, entryID string) error

	// DetachEntry removes entryID from the account's entry list. Detaching a missing id is a no-op.
	DetachEntry(ctx context.Context, accountID string, entryID string) error

	// SetBalance overwrites the balance. Only reconciliation uses it.
	SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
