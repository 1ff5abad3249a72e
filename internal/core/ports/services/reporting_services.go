package services

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// ReportingSvc is the read-only façade over entries, accounts and revenue buckets.
// Every report is scoped to the caller's school.
type ReportingSvc interface {
	// MonthlyTransactions lists the deposits and expenses of an account for one month.
	MonthlyTransactions(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)

	// CurrentMonthRevenue returns the revenue of the current calendar month.
	CurrentMonthRevenue(ctx context.Context, sessionID, termID string) (*dto.MonthRevenueResponse, error)

	// YearlyRevenue returns the twelve monthly totals of a year.
	YearlyRevenue(ctx context.Context, sessionID, termID string, year int) ([12]decimal.Decimal, error)

	// StudentFeeStatus classifies each student of a class against the class fee structure.
	StudentFeeStatus(ctx context.Context, classID, sessionID, termID string) ([]domain.StudentFeeStatus, error)
}
