package services

import (
	"context"
	"time"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RevenueAggregatorSvc maintains the monthly revenue buckets.
type RevenueAggregatorSvc interface {
	// ApplyDelta adds delta to the bucket of postedAt. A zero delta is a no-op.
	ApplyDelta(ctx context.Context, schoolID, sessionID, termID string, postedAt time.Time, delta decimal.Decimal) error

	// Query returns the bucket total, zero when the bucket was never touched.
	Query(ctx context.Context, key domain.BucketKey) (decimal.Decimal, error)

	// QueryYear returns the twelve monthly totals of a calendar year, January first.
	QueryYear(ctx context.Context, schoolID, sessionID, termID string, year int) ([12]decimal.Decimal, error)

	// Recompute rebuilds the bucket from its counting entries and returns the new total.
	Recompute(ctx context.Context, key domain.BucketKey) (decimal.Decimal, error)
}
