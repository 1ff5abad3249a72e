package services

import (
	"testing"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportingService_MonthlyTransactionsPages(t *testing.T) {
	h := newHarness(t, nil)
	acc := h.newAccount(t)

	var want []string
	for i := 1; i <= 5; i++ {
		e := h.post(t, domain.KindDeposit, depositReq(acc, "100", day(2024, time.March, i)))
		want = append(want, e.EntryID)
	}
	for i := 1; i <= 2; i++ {
		e := h.post(t, domain.KindExpense, expenseReq(acc, "5", day(2024, time.March, 20+i)))
		want = append(want, e.EntryID)
	}
	h.post(t, domain.KindDeposit, depositReq(acc, "100", day(2024, time.April, 1)))
	h.post(t, domain.KindClassPayment, paymentReq(acc, "30", day(2024, time.March, 9), domain.StatusCompleted))
	voided := h.post(t, domain.KindDeposit, depositReq(acc, "1", day(2024, time.March, 9)))
	_, err := h.ledger.VoidEntry(h.ctx, domain.KindDeposit, voided.EntryID)
	require.NoError(t, err)

	var got []string
	var token *string
	pages := 0
	for {
		resp, err := h.reporting.MonthlyTransactions(h.ctx, acc, dto.ListTransactionsParams{Year: 2024, Month: 3, Limit: 3, NextToken: token})
		require.NoError(t, err)
		pages++
		for _, tx := range resp.Transactions {
			got = append(got, tx.EntryID)
		}
		if resp.NextToken == nil {
			break
		}
		token = resp.NextToken
		require.Less(t, pages, 10, "pagination did not terminate")
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, want, got, "creation order, no duplicates, no gaps")
}

func TestReportingService_MonthlyTransactionsRejectsBadInput(t *testing.T) {
	h := newHarness(t, nil)
	acc := h.newAccount(t)

	_, err := h.reporting.MonthlyTransactions(h.ctx, acc, dto.ListTransactionsParams{Year: 2024, Month: 13})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	bad := "not-a-token"
	_, err = h.reporting.MonthlyTransactions(h.ctx, acc, dto.ListTransactionsParams{Year: 2024, Month: 3, NextToken: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.reporting.MonthlyTransactions(asUser("school-2", "bursar-2"), acc, dto.ListTransactionsParams{Year: 2024, Month: 3})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	resp, err := h.reporting.MonthlyTransactions(h.ctx, acc, dto.ListTransactionsParams{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Empty(t, resp.Transactions)
	assert.Nil(t, resp.NextToken)
}

func TestReportingService_Revenue(t *testing.T) {
	h := newHarness(t, nil)
	acc := h.newAccount(t)

	h.post(t, domain.KindDeposit, depositReq(acc, "10", day(2024, time.January, 31)))
	h.post(t, domain.KindFeesPayment, paymentReq("", "20", day(2024, time.March, 5), domain.StatusCompleted))
	h.post(t, domain.KindDeposit, depositReq(acc, "40", day(2024, time.December, 1)))
	h.post(t, domain.KindDeposit, depositReq(acc, "5", day(2023, time.December, 25)))

	// The harness clock sits in March 2024
	current, err := h.reporting.CurrentMonthRevenue(h.ctx, testSession, testTerm)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), current.MonthStart)
	assert.True(t, amt("20").Equal(current.TotalRevenue))

	months, err := h.reporting.YearlyRevenue(h.ctx, testSession, testTerm, 0)
	require.NoError(t, err)
	assert.True(t, amt("10").Equal(months[0]))
	assert.True(t, months[1].IsZero())
	assert.True(t, amt("20").Equal(months[2]))
	assert.True(t, amt("40").Equal(months[11]))

	prior, err := h.reporting.YearlyRevenue(h.ctx, testSession, testTerm, 2023)
	require.NoError(t, err)
	assert.True(t, amt("5").Equal(prior[11]))

	otherTerm, err := h.reporting.YearlyRevenue(h.ctx, testSession, "first", 2024)
	require.NoError(t, err)
	for _, m := range otherTerm {
		assert.True(t, m.IsZero())
	}
}

func TestReportingService_StudentFeeStatus(t *testing.T) {
	h := newHarness(t, nil)
	for _, s := range []domain.Student{
		{StudentID: "s1", FullName: "Ada"},
		{StudentID: "s2", FullName: "Bola"},
		{StudentID: "s3", FullName: "Chidi"},
		{StudentID: "s4", FullName: "Dayo"},
		{StudentID: "s5", FullName: "Efe"},
	} {
		s.SchoolID, s.ClassID = testSchool, "jss1"
		h.store.Fees.AddStudent(s)
	}
	h.store.Fees.AddFeeStructure(domain.FeeStructure{
		StructureID: "fs-1", SchoolID: testSchool, ClassID: "jss1", SessionID: testSession, TermID: testTerm,
		Lines: []domain.FeeLine{
			{FeeLineID: "tuition", Name: "Tuition", Amount: amt("100")},
			{FeeLineID: "books", Name: "Books", Amount: amt("50")},
		},
	})

	pay := func(student, amount string, status domain.EntryStatus, lines ...dto.FeeLineRequest) {
		req := paymentReq("", amount, day(2024, time.March, 2), status)
		req.StudentID = student
		req.FeeLines = lines
		h.post(t, domain.KindFeesPayment, req)
	}
	// Lump sums are allocated across lines in order
	pay("s1", "120", domain.StatusCompleted)
	pay("s1", "30", domain.StatusCompleted)
	pay("s2", "0", domain.StatusCompleted, dto.FeeLineRequest{FeeLineID: "tuition", Paid: amt("100")})
	pay("s4", "150", domain.StatusPending)
	// Discounts do not count as coverage
	pay("s5", "0", domain.StatusCompleted,
		dto.FeeLineRequest{FeeLineID: "tuition", Paid: amt("100")},
		dto.FeeLineRequest{FeeLineID: "books", Paid: amt("40"), Discount: amt("10")})

	rows, err := h.reporting.StudentFeeStatus(h.ctx, "jss1", testSession, testTerm)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	byID := map[string]domain.StudentFeeStatus{}
	for _, r := range rows {
		byID[r.Student.StudentID] = r
		assert.True(t, amt("150").Equal(r.TotalDue))
	}
	assert.Equal(t, domain.FeeFullyPaid, byID["s1"].Status)
	assert.True(t, amt("150").Equal(byID["s1"].TotalPaid))
	assert.Equal(t, domain.FeePartlyPaid, byID["s2"].Status)
	assert.Equal(t, domain.FeeUnpaid, byID["s3"].Status)
	assert.Equal(t, domain.FeeUnpaid, byID["s4"].Status, "pending payments are not coverage")
	assert.Equal(t, domain.FeePartlyPaid, byID["s5"].Status)

	_, err = h.reporting.StudentFeeStatus(h.ctx, "jss2", testSession, testTerm)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReportingService_EmptyFeeStructureIsFullyPaid(t *testing.T) {
	h := newHarness(t, nil)
	h.store.Fees.AddStudent(domain.Student{StudentID: "s1", SchoolID: testSchool, ClassID: "ss3", FullName: "Ife"})
	h.store.Fees.AddFeeStructure(domain.FeeStructure{StructureID: "fs-2", SchoolID: testSchool, ClassID: "ss3", SessionID: testSession, TermID: testTerm})

	rows, err := h.reporting.StudentFeeStatus(h.ctx, "ss3", testSession, testTerm)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.FeeFullyPaid, rows[0].Status)
	assert.True(t, rows[0].TotalDue.IsZero())
}
