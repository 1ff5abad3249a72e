package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueRepository is an in-memory implementation of portsrepo.RevenueRepository.
type RevenueRepository struct {
	mu   sync.Mutex
	rows map[domain.BucketKey]domain.RevenueSummary
	now  func() time.Time
}

// NewRevenueRepository creates an empty revenue store.
func NewRevenueRepository() *RevenueRepository {
	return &RevenueRepository{rows: make(map[domain.BucketKey]domain.RevenueSummary), now: time.Now}
}

var _ portsrepo.RevenueRepository = (*RevenueRepository)(nil)

func normalise(key domain.BucketKey) domain.BucketKey {
	key.MonthStart = domain.MonthStart(key.MonthStart)
	return key
}

// upsert must be called with mu held.
func (r *RevenueRepository) upsert(key domain.BucketKey) domain.RevenueSummary {
	row, ok := r.rows[key]
	if !ok {
		row = domain.RevenueSummary{SummaryID: uuid.NewString(), BucketKey: key, TotalRevenue: decimal.Zero}
	}
	return row
}

func (r *RevenueRepository) IncrementRevenue(ctx context.Context, key domain.BucketKey, delta decimal.Decimal) error {
	key = normalise(key)
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.upsert(key)
	row.TotalRevenue = row.TotalRevenue.Add(delta)
	row.UpdatedAt = r.now().UTC()
	r.rows[key] = row
	return nil
}

func (r *RevenueRepository) SetRevenue(ctx context.Context, key domain.BucketKey, total decimal.Decimal) error {
	key = normalise(key)
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.upsert(key)
	row.TotalRevenue = total
	row.UpdatedAt = r.now().UTC()
	r.rows[key] = row
	return nil
}

func (r *RevenueRepository) FindRevenue(ctx context.Context, key domain.BucketKey) (*domain.RevenueSummary, error) {
	key = normalise(key)
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[key]
	if !ok {
		return nil, fmt.Errorf("%w: revenue bucket %s", apperrors.ErrNotFound, key)
	}
	return &row, nil
}

func (r *RevenueRepository) ListRevenueForYear(ctx context.Context, schoolID, sessionID, termID string, year int) ([]domain.RevenueSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.RevenueSummary
	for key, row := range r.rows {
		if key.SchoolID == schoolID && key.SessionID == sessionID && key.TermID == termID && key.MonthStart.Year() == year {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthStart.Before(out[j].MonthStart) })
	return out, nil
}
