package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueSummary is one monthly revenue bucket row.
type RevenueSummary struct {
	SummaryID    string          `db:"summary_id"`
	SchoolID     string          `db:"school_id"`
	SessionID    string          `db:"session_id"`
	TermID       string          `db:"term_id"`
	MonthStart   time.Time       `db:"month_start"`
	TotalRevenue decimal.Decimal `db:"total_revenue"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// ReconciliationTask is a queued repair of a bucket or account balance.
type ReconciliationTask struct {
	TaskID         string          `db:"task_id"`
	Kind           string          `db:"kind"`
	SchoolID       string          `db:"school_id"`
	SessionID      string          `db:"session_id"`
	TermID         string          `db:"term_id"`
	MonthStart     time.Time       `db:"month_start"`
	AccountID      string          `db:"account_id"`
	EntryID        string          `db:"entry_id"`
	AttemptedDelta decimal.Decimal `db:"attempted_delta"`
	Reason         string          `db:"reason"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	ResolvedAt     *time.Time      `db:"resolved_at"`
}
