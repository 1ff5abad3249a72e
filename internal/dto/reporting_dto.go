package dto

import (
	"time"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ListTransactionsParams defines query parameters for the monthly account statement.
type ListTransactionsParams struct {
	Year      int     `form:"year" binding:"required,min=1970,max=9999"`
	Month     int     `form:"month" binding:"required,min=1,max=12"`
	Limit     int     `form:"limit,default=50" binding:"min=1,max=500"`
	NextToken *string `form:"nextToken"`
}

// ListTransactionsResponse wraps one page of the monthly account statement.
type ListTransactionsResponse struct {
	Transactions []EntryResponse `json:"transactions"`
	NextToken    *string         `json:"nextToken,omitempty"`
}

// RevenueParams defines query parameters for revenue reports.
type RevenueParams struct {
	SessionID string `form:"sessionID" binding:"required"`
	TermID    string `form:"termID" binding:"required"`
	Year      int    `form:"year" binding:"omitempty,min=1970,max=9999"`
}

// MonthRevenueResponse is the total of one calendar month.
type MonthRevenueResponse struct {
	MonthStart   time.Time       `json:"monthStart"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}

// YearlyRevenueResponse lists twelve monthly totals, January first.
type YearlyRevenueResponse struct {
	Year   int                    `json:"year"`
	Months []MonthRevenueResponse `json:"months"`
	Total  decimal.Decimal        `json:"total"`
}

// ToYearlyRevenueResponse converts twelve monthly totals to the response DTO.
func ToYearlyRevenueResponse(year int, months [12]decimal.Decimal) YearlyRevenueResponse {
	resp := YearlyRevenueResponse{Year: year, Months: make([]MonthRevenueResponse, 12), Total: decimal.Zero}
	for i, total := range months {
		resp.Months[i] = MonthRevenueResponse{
			MonthStart:   time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			TotalRevenue: total,
		}
		resp.Total = resp.Total.Add(total)
	}
	return resp
}

// FeeStatusParams defines query parameters for the class fee status report.
type FeeStatusParams struct {
	SessionID string `form:"sessionID" binding:"required"`
	TermID    string `form:"termID" binding:"required"`
}

// StudentFeeStatusResponse is one student row of the fee status report.
type StudentFeeStatusResponse struct {
	StudentID string           `json:"studentID"`
	FullName  string           `json:"fullName"`
	Status    domain.FeeStatus `json:"status"`
	TotalDue  decimal.Decimal  `json:"totalDue"`
	TotalPaid decimal.Decimal  `json:"totalPaid"`
}

// FeeStatusResponse wraps the class fee status report.
type FeeStatusResponse struct {
	ClassID  string                     `json:"classID"`
	Students []StudentFeeStatusResponse `json:"students"`
}

// ToFeeStatusResponse converts report rows to the response DTO.
func ToFeeStatusResponse(classID string, rows []domain.StudentFeeStatus) FeeStatusResponse {
	resp := FeeStatusResponse{ClassID: classID, Students: make([]StudentFeeStatusResponse, len(rows))}
	for i, r := range rows {
		resp.Students[i] = StudentFeeStatusResponse{
			StudentID: r.Student.StudentID,
			FullName:  r.Student.FullName,
			Status:    r.Status,
			TotalDue:  r.TotalDue,
			TotalPaid: r.TotalPaid,
		}
	}
	return resp
}

// RecomputeRevenueRequest asks for one bucket to be rebuilt from source entries.
type RecomputeRevenueRequest struct {
	SessionID string `json:"sessionID" binding:"required"`
	TermID    string `json:"termID" binding:"required"`
	Month     string `json:"month" binding:"required"` // YYYY-MM
}

// SweepResponse reports how many reconciliation tasks were resolved.
type SweepResponse struct {
	Resolved int `json:"resolved"`
}
