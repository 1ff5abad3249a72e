package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
	"github.com/SscSPs/school_ledger/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// revenueAggregator keeps one running total per (school, session, term, month).
type revenueAggregator struct {
	BaseService
	revenueRepo portsrepo.RevenueRepository
	entryRepo   portsrepo.EntryReader
}

// NewRevenueAggregator creates the aggregator. entryRepo is needed only by Recompute.
func NewRevenueAggregator(revenueRepo portsrepo.RevenueRepository, entryRepo portsrepo.EntryReader) portssvc.RevenueAggregatorSvc {
	return &revenueAggregator{
		revenueRepo: revenueRepo,
		entryRepo:   entryRepo,
	}
}

var _ portssvc.RevenueAggregatorSvc = (*revenueAggregator)(nil)

func (s *revenueAggregator) ApplyDelta(ctx context.Context, schoolID, sessionID, termID string, postedAt time.Time, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	key := domain.NewBucketKey(schoolID, sessionID, termID, postedAt)
	if err := s.revenueRepo.IncrementRevenue(ctx, key, delta); err != nil {
		s.LogError(ctx, err, "Failed to increment revenue bucket",
			slog.String("bucket", key.String()),
			slog.String("delta", delta.String()))
		return fmt.Errorf("failed to increment revenue bucket %s: %w", key, err)
	}
	s.LogDebug(ctx, "Revenue bucket updated",
		slog.String("bucket", key.String()),
		slog.String("delta", delta.String()))
	return nil
}

func (s *revenueAggregator) Query(ctx context.Context, key domain.BucketKey) (decimal.Decimal, error) {
	key.MonthStart = domain.MonthStart(key.MonthStart)
	summary, err := s.revenueRepo.FindRevenue(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return decimal.Zero, nil
		}
		s.LogError(ctx, err, "Failed to read revenue bucket", slog.String("bucket", key.String()))
		return decimal.Zero, fmt.Errorf("failed to read revenue bucket %s: %w", key, err)
	}
	return summary.TotalRevenue, nil
}

func (s *revenueAggregator) QueryYear(ctx context.Context, schoolID, sessionID, termID string, year int) ([12]decimal.Decimal, error) {
	var months [12]decimal.Decimal
	for i := range months {
		months[i] = decimal.Zero
	}

	rows, err := s.revenueRepo.ListRevenueForYear(ctx, schoolID, sessionID, termID, year)
	if err != nil {
		s.LogError(ctx, err, "Failed to read yearly revenue",
			slog.String("school_id", schoolID),
			slog.Int("year", year))
		return months, fmt.Errorf("failed to read revenue for %d: %w", year, err)
	}
	for _, row := range rows {
		m := row.MonthStart.UTC()
		if m.Year() != year {
			continue
		}
		months[m.Month()-1] = months[m.Month()-1].Add(row.TotalRevenue)
	}
	return months, nil
}

// Recompute sums the bucket's counting entries and overwrites the stored total.
// Running it twice yields the same row.
func (s *revenueAggregator) Recompute(ctx context.Context, key domain.BucketKey) (decimal.Decimal, error) {
	if s.entryRepo == nil {
		return decimal.Zero, fmt.Errorf("%w: revenue recompute requires an entry reader", apperrors.ErrInternal)
	}
	key.MonthStart = domain.MonthStart(key.MonthStart)

	entries, err := s.entryRepo.FindEntriesByBucket(ctx, key)
	if err != nil {
		s.LogError(ctx, err, "Failed to load entries for revenue recompute", slog.String("bucket", key.String()))
		return decimal.Zero, fmt.Errorf("failed to load entries for bucket %s: %w", key, err)
	}

	total := accounting.SumContributions(entries)
	if err := s.revenueRepo.SetRevenue(ctx, key, total); err != nil {
		s.LogError(ctx, err, "Failed to store recomputed revenue", slog.String("bucket", key.String()))
		return decimal.Zero, fmt.Errorf("failed to store recomputed revenue for %s: %w", key, err)
	}

	s.LogInfo(ctx, "Revenue bucket recomputed",
		slog.String("bucket", key.String()),
		slog.Int("entry_count", len(entries)),
		slog.String("total", total.String()))
	return total, nil
}
