package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/SscSPs/school_ledger/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

// reportingService implements the ReportingSvc interface
type reportingService struct {
	BaseService
	entryRepo  portsrepo.EntryReader
	accounts   portssvc.AccountReaderSvc
	aggregator portssvc.RevenueAggregatorSvc
	fees       portsrepo.FeeDirectory
	now        func() time.Time
}

// ReportingServiceOption is a functional option for configuring the reporting service
type ReportingServiceOption func(*reportingService)

// WithReportingIdentityResolver sets how the acting user is resolved
func WithReportingIdentityResolver(resolver portssvc.IdentityResolver) ReportingServiceOption {
	return func(s *reportingService) {
		s.Identity = resolver
	}
}

// WithReportingClock overrides the clock that decides the current month
func WithReportingClock(now func() time.Time) ReportingServiceOption {
	return func(s *reportingService) {
		s.now = now
	}
}

// NewReportingService creates a new reporting service with the provided options
func NewReportingService(entryRepo portsrepo.EntryReader, accounts portssvc.AccountReaderSvc, aggregator portssvc.RevenueAggregatorSvc, fees portsrepo.FeeDirectory, options ...ReportingServiceOption) portssvc.ReportingSvc {
	svc := &reportingService{
		entryRepo:  entryRepo,
		accounts:   accounts,
		aggregator: aggregator,
		fees:       fees,
		now:        time.Now,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure reportingService implements the ReportingSvc interface
var _ portssvc.ReportingSvc = (*reportingService)(nil)

// MonthlyTransactions pages through an account's deposits and expenses posted in one month,
// ordered by creation time then entry id.
func (s *reportingService) MonthlyTransactions(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	if _, err := s.accounts.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	if params.Month < 1 || params.Month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", apperrors.ErrValidation)
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	monthStart := time.Date(params.Year, time.Month(params.Month), 1, 0, 0, 0, 0, time.UTC)
	entries, err := s.entryRepo.FindEntriesByAccountAndMonth(ctx, accountID, monthStart, domain.KindDeposit, domain.KindExpense)
	if err != nil {
		s.LogError(ctx, err, "Failed to load monthly transactions",
			slog.String("account_id", accountID),
			slog.String("month", monthStart.Format("2006-01")))
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].EntryID < entries[j].EntryID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	if params.NextToken != nil && *params.NextToken != "" {
		cursorAt, cursorID, err := pagination.DecodeToken(*params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		start := len(entries)
		for i, e := range entries {
			if pagination.After(e.CreatedAt, e.EntryID, cursorAt, cursorID) {
				start = i
				break
			}
		}
		entries = entries[start:]
	}

	resp := &dto.ListTransactionsResponse{}
	if len(entries) > limit {
		last := entries[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
		resp.NextToken = &token
		entries = entries[:limit]
	}
	resp.Transactions = dto.ToEntryResponses(entries)
	return resp, nil
}

func (s *reportingService) CurrentMonthRevenue(ctx context.Context, sessionID, termID string) (*dto.MonthRevenueResponse, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	key := domain.NewBucketKey(identity.SchoolID, sessionID, termID, s.now())
	total, err := s.aggregator.Query(ctx, key)
	if err != nil {
		return nil, err
	}
	return &dto.MonthRevenueResponse{MonthStart: key.MonthStart, TotalRevenue: total}, nil
}

func (s *reportingService) YearlyRevenue(ctx context.Context, sessionID, termID string, year int) ([12]decimal.Decimal, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return [12]decimal.Decimal{}, err
	}
	if year == 0 {
		year = s.now().UTC().Year()
	}
	return s.aggregator.QueryYear(ctx, identity.SchoolID, sessionID, termID, year)
}

// StudentFeeStatus classifies every student of a class. A student is FULLY_PAID when each fee
// line is covered, UNPAID when no line has received anything and PARTLY_PAID otherwise.
// Payments without a line breakdown are allocated to the lines in structure order.
func (s *reportingService) StudentFeeStatus(ctx context.Context, classID, sessionID, termID string) ([]domain.StudentFeeStatus, error) {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	students, err := s.fees.ListStudentsByClass(ctx, identity.SchoolID, classID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list students", slog.String("class_id", classID))
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	structure, err := s.fees.FindFeeStructure(ctx, identity.SchoolID, classID, sessionID, termID)
	if err != nil {
		return nil, err
	}
	payments, err := s.entryRepo.FindFeesPaymentsByClass(ctx, identity.SchoolID, classID, sessionID, termID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load fees payments", slog.String("class_id", classID))
		return nil, fmt.Errorf("failed to load fees payments: %w", err)
	}

	byStudent := map[string][]domain.LedgerEntry{}
	for _, p := range payments {
		if p.Status.Counts() {
			byStudent[p.StudentID] = append(byStudent[p.StudentID], p)
		}
	}

	totalDue := decimal.Zero
	for _, line := range structure.Lines {
		totalDue = totalDue.Add(line.Amount)
	}

	rows := make([]domain.StudentFeeStatus, 0, len(students))
	for _, st := range students {
		status, paid := classifyFees(structure.Lines, byStudent[st.StudentID])
		rows = append(rows, domain.StudentFeeStatus{
			Student:   st,
			Status:    status,
			TotalDue:  totalDue,
			TotalPaid: paid,
		})
	}
	return rows, nil
}

func classifyFees(lines []domain.FeeLine, payments []domain.LedgerEntry) (domain.FeeStatus, decimal.Decimal) {
	paidPerLine := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		paidPerLine[l.FeeLineID] = decimal.Zero
	}

	totalPaid := decimal.Zero
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
		if len(p.FeeLines) > 0 {
			for _, fl := range p.FeeLines {
				if cur, ok := paidPerLine[fl.FeeLineID]; ok {
					paidPerLine[fl.FeeLineID] = cur.Add(fl.Paid)
				}
			}
			continue
		}
		remaining := p.Amount
		for _, l := range lines {
			if !remaining.IsPositive() {
				break
			}
			owed := l.Amount.Sub(paidPerLine[l.FeeLineID])
			if !owed.IsPositive() {
				continue
			}
			portion := decimal.Min(owed, remaining)
			paidPerLine[l.FeeLineID] = paidPerLine[l.FeeLineID].Add(portion)
			remaining = remaining.Sub(portion)
		}
	}

	if len(lines) == 0 {
		return domain.FeeFullyPaid, totalPaid
	}

	covered, touched := 0, 0
	for _, l := range lines {
		paid := paidPerLine[l.FeeLineID]
		if paid.IsPositive() {
			touched++
		}
		if paid.GreaterThanOrEqual(l.Amount) {
			covered++
		}
	}
	switch {
	case covered == len(lines):
		return domain.FeeFullyPaid, totalPaid
	case touched == 0:
		return domain.FeeUnpaid, totalPaid
	default:
		return domain.FeePartlyPaid, totalPaid
	}
}
