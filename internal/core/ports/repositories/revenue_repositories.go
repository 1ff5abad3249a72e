package repositories

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RevenueRepository persists revenue summary rows.
type RevenueRepository interface {
	// IncrementRevenue adds delta to the bucket's total, creating the row on first use.
	// Concurrent increments must never lose updates.
	IncrementRevenue(ctx context.Context, key domain.BucketKey, delta decimal.Decimal) error

	// FindRevenue returns the bucket's row, or ErrNotFound when none was created yet.
	FindRevenue(ctx context.Context, key domain.BucketKey) (*domain.RevenueSummary, error)

	// ListRevenueForYear returns all existing rows of a calendar year.
	ListRevenueForYear(ctx context.Context, schoolID, sessionID, termID string, year int) ([]domain.RevenueSummary, error)

	// SetRevenue overwrites the bucket's total.
	SetRevenue(ctx context.Context, key domain.BucketKey, total decimal.Decimal) error
}
