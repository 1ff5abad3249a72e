package services

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
)

// IdentityResolver returns the acting user of the current request.
// A nil identity means the caller is unauthenticated.
type IdentityResolver interface {
	CurrentUser(ctx context.Context) (*domain.Identity, error)
}

// TransactionIDGenerator produces unique, human-readable payment references.
type TransactionIDGenerator interface {
	Generate() (string, error)
}
