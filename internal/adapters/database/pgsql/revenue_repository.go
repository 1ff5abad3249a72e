package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/school_ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const revenueColumns = `summary_id, school_id, session_id, term_id, month_start, total_revenue, updated_at`

type PgxRevenueRepository struct {
	BaseRepository
}

func newPgxRevenueRepository(pool *pgxpool.Pool) *PgxRevenueRepository {
	return &PgxRevenueRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.RevenueRepository = (*PgxRevenueRepository)(nil)

func scanRevenue(row pgx.Row) (domain.RevenueSummary, error) {
	var m models.RevenueSummary
	if err := row.Scan(&m.SummaryID, &m.SchoolID, &m.SessionID, &m.TermID, &m.MonthStart, &m.TotalRevenue, &m.UpdatedAt); err != nil {
		return domain.RevenueSummary{}, err
	}
	return domain.RevenueSummary{
		SummaryID: m.SummaryID,
		BucketKey: domain.BucketKey{
			SchoolID:   m.SchoolID,
			SessionID:  m.SessionID,
			TermID:     m.TermID,
			MonthStart: m.MonthStart.UTC(),
		},
		TotalRevenue: m.TotalRevenue,
		UpdatedAt:    m.UpdatedAt.UTC(),
	}, nil
}

// IncrementRevenue upserts the bucket row. The conflict branch adds to the stored total,
// so concurrent increments serialize on the row instead of overwriting each other.
func (r *PgxRevenueRepository) IncrementRevenue(ctx context.Context, key domain.BucketKey, delta decimal.Decimal) error {
	query := `
		INSERT INTO revenue_summaries (` + revenueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (school_id, session_id, term_id, month_start)
		DO UPDATE SET total_revenue = revenue_summaries.total_revenue + EXCLUDED.total_revenue,
		              updated_at = EXCLUDED.updated_at;
	`
	_, err := r.Pool.Exec(ctx, query,
		uuid.NewString(), key.SchoolID, key.SessionID, key.TermID, domain.MonthStart(key.MonthStart), delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment revenue bucket %s: %w", key, err)
	}
	return nil
}

func (r *PgxRevenueRepository) FindRevenue(ctx context.Context, key domain.BucketKey) (*domain.RevenueSummary, error) {
	query := `
		SELECT ` + revenueColumns + `
		FROM revenue_summaries
		WHERE school_id = $1 AND session_id = $2 AND term_id = $3 AND month_start = $4;
	`
	summary, err := scanRevenue(r.Pool.QueryRow(ctx, query, key.SchoolID, key.SessionID, key.TermID, domain.MonthStart(key.MonthStart)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: revenue bucket %s", apperrors.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to find revenue bucket %s: %w", key, err)
	}
	return &summary, nil
}

func (r *PgxRevenueRepository) ListRevenueForYear(ctx context.Context, schoolID, sessionID, termID string, year int) ([]domain.RevenueSummary, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	query := `
		SELECT ` + revenueColumns + `
		FROM revenue_summaries
		WHERE school_id = $1 AND session_id = $2 AND term_id = $3 AND month_start >= $4 AND month_start < $5
		ORDER BY month_start;
	`
	rows, err := r.Pool.Query(ctx, query, schoolID, sessionID, termID, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue for %d: %w", year, err)
	}
	defer rows.Close()

	summaries := []domain.RevenueSummary{}
	for rows.Next() {
		s, err := scanRevenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revenue row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revenue rows: %w", err)
	}
	return summaries, nil
}

func (r *PgxRevenueRepository) SetRevenue(ctx context.Context, key domain.BucketKey, total decimal.Decimal) error {
	query := `
		INSERT INTO revenue_summaries (` + revenueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (school_id, session_id, term_id, month_start)
		DO UPDATE SET total_revenue = EXCLUDED.total_revenue, updated_at = EXCLUDED.updated_at;
	`
	_, err := r.Pool.Exec(ctx, query,
		uuid.NewString(), key.SchoolID, key.SessionID, key.TermID, domain.MonthStart(key.MonthStart), total, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set revenue bucket %s: %w", key, err)
	}
	return nil
}
