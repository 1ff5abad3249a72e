package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/SscSPs/school_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/SscSPs/school_ledger/internal/core/services"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/SscSPs/school_ledger/internal/handlers"
	"github.com/SscSPs/school_ledger/internal/middleware"
	"github.com/SscSPs/school_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite ---
type LedgerAPITestSuite struct {
	suite.Suite
	router *gin.Engine
	store  *memory.Store
	cfg    *config.Config
	token  string
}

func (suite *LedgerAPITestSuite) issue(userID, schoolID string) string {
	token, err := middleware.IssueToken(domain.Identity{UserID: userID, SchoolID: schoolID}, suite.cfg.JWTSecret, suite.cfg.JWTIssuer, time.Hour)
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return token
}

func (suite *LedgerAPITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.cfg = &config.Config{JWTSecret: "test-secret-key-that-is-long-enough", JWTIssuer: "school-ledger-test"}
	suite.store = memory.NewStore()

	container := services.NewServiceContainer(suite.store.Provider(), middleware.ContextIdentityResolver{})
	suite.router = gin.New()
	handlers.RegisterRoutes(suite.router, suite.cfg, container, map[string]handlers.HealthChecker{
		"store": func(context.Context) error { return nil },
	})
	suite.token = suite.issue("bursar-1", "school-1")
}

func (suite *LedgerAPITestSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *LedgerAPITestSuite) decode(w *httptest.ResponseRecorder, out any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (suite *LedgerAPITestSuite) createAccount(name string) dto.AccountResponse {
	w := suite.do(http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{Name: name}, suite.token)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var acc dto.AccountResponse
	suite.decode(w, &acc)
	return acc
}

func (suite *LedgerAPITestSuite) post(kind string, body gin.H) *httptest.ResponseRecorder {
	return suite.do(http.MethodPost, "/api/v1/entries/"+kind, body, suite.token)
}

// --- Test Cases ---

func (suite *LedgerAPITestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", nil, "")
	suite.Equal(http.StatusOK, w.Code)

	r := gin.New()
	handlers.RegisterRoutes(r, suite.cfg, services.NewServiceContainer(suite.store.Provider(), middleware.ContextIdentityResolver{}),
		map[string]handlers.HealthChecker{"postgres": func(context.Context) error { return errors.New("connection refused") }})
	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Contains(w.Body.String(), "connection refused")
}

func (suite *LedgerAPITestSuite) TestRequiresAuthentication() {
	w := suite.do(http.MethodGet, "/api/v1/accounts", nil, "")
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/accounts", nil, "not-a-token")
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *LedgerAPITestSuite) TestAccountLifecycle() {
	acc := suite.createAccount("Main Account")
	suite.Equal("school-1", acc.SchoolID)
	suite.True(acc.Balance.IsZero())

	w := suite.do(http.MethodGet, "/api/v1/accounts/"+acc.AccountID, nil, suite.token)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/accounts?limit=10", nil, suite.token)
	suite.Equal(http.StatusOK, w.Code)
	var list dto.ListAccountsResponse
	suite.decode(w, &list)
	suite.Len(list.Accounts, 1)

	other := suite.issue("bursar-2", "school-2")
	w = suite.do(http.MethodGet, "/api/v1/accounts/"+acc.AccountID, nil, other)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/accounts", gin.H{"description": "no name"}, suite.token)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *LedgerAPITestSuite) TestDepositExpenseEditVoid() {
	acc := suite.createAccount("Main Account")

	w := suite.post("deposits", gin.H{"accountID": acc.AccountID, "sessionID": "2024", "termID": "T1", "amount": "500"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var deposit dto.EntryResponse
	suite.decode(w, &deposit)
	suite.Equal(domain.KindDeposit, deposit.Kind)
	suite.Equal(domain.StatusCompleted, deposit.Status)

	w = suite.post("expenses", gin.H{"accountID": acc.AccountID, "sessionID": "2024", "termID": "T1", "amount": "700", "category": "repairs"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code, w.Body.String())

	w = suite.post("expenses", gin.H{"accountID": acc.AccountID, "sessionID": "2024", "termID": "T1", "amount": "200", "category": "repairs"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var expense dto.EntryResponse
	suite.decode(w, &expense)

	w = suite.do(http.MethodPatch, "/api/v1/entries/expenses/"+expense.EntryID, gin.H{"amount": "250"}, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var edited dto.EntryResponse
	suite.decode(w, &edited)
	suite.True(edited.Amount.Equal(decimal.NewFromInt(250)))
	suite.Equal(domain.ActionUpdate, edited.ActionType)

	w = suite.do(http.MethodGet, "/api/v1/accounts/"+acc.AccountID, nil, suite.token)
	var fetched dto.AccountResponse
	suite.decode(w, &fetched)
	suite.True(fetched.Balance.Equal(decimal.NewFromInt(250)), fetched.Balance.String())
	suite.Equal(2, fetched.EntryCount)

	w = suite.do(http.MethodDelete, "/api/v1/entries/deposits/"+deposit.EntryID, nil, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.do(http.MethodGet, "/api/v1/entries/deposits/"+deposit.EntryID, nil, suite.token)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/accounts/"+acc.AccountID, nil, suite.token)
	suite.decode(w, &fetched)
	suite.True(fetched.Balance.Equal(decimal.NewFromInt(-250)), fetched.Balance.String())
}

func (suite *LedgerAPITestSuite) TestRejectsBadEntryRequests() {
	w := suite.post("donations", gin.H{"sessionID": "2024", "termID": "T1", "amount": "5"})
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.post("deposits", gin.H{"termID": "T1", "amount": "5"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.post("deposits", gin.H{"sessionID": "2024", "termID": "T1", "amount": "-5"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.post("meal-payments", gin.H{"sessionID": "2024", "termID": "T1", "amount": "5"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.post("deposits", gin.H{"sessionID": "2024", "termID": "T1", "amount": "0.00001"})
	suite.Equal(http.StatusBadRequest, w.Code, "amounts finer than the stored scale are rejected")

	w = suite.post("deposits", gin.H{"accountID": "missing", "sessionID": "2024", "termID": "T1", "amount": "5"})
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *LedgerAPITestSuite) TestRefundedPaymentIsFrozen() {
	w := suite.post("class-payments", gin.H{"sessionID": "2024", "termID": "T1", "amount": "40", "studentID": "s1", "classID": "jss1"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var payment dto.EntryResponse
	suite.decode(w, &payment)
	suite.NotEmpty(payment.TransactionID)

	w = suite.do(http.MethodPatch, "/api/v1/entries/class-payments/"+payment.EntryID, gin.H{"status": "PENDING"}, suite.token)
	suite.Equal(http.StatusConflict, w.Code, "a completed payment cannot go back to pending")

	w = suite.do(http.MethodPatch, "/api/v1/entries/class-payments/"+payment.EntryID, gin.H{"status": "REFUNDED"}, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.do(http.MethodPatch, "/api/v1/entries/class-payments/"+payment.EntryID, gin.H{"amount": "10"}, suite.token)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *LedgerAPITestSuite) TestRevenueReports() {
	now := time.Now().UTC()
	lastMonth := domain.MonthStart(now).AddDate(0, -1, 0)

	suite.Require().Equal(http.StatusCreated, suite.post("deposits", gin.H{"sessionID": "2024", "termID": "T1", "amount": "100"}).Code)
	suite.Require().Equal(http.StatusCreated, suite.post("meal-payments", gin.H{"sessionID": "2024", "termID": "T1", "amount": "12.50", "studentID": "s1", "classID": "jss1"}).Code)
	suite.Require().Equal(http.StatusCreated, suite.post("deposits", gin.H{"sessionID": "2024", "termID": "T1", "amount": "30", "postedAt": lastMonth}).Code)

	w := suite.do(http.MethodGet, "/api/v1/reports/revenue/current?sessionID=2024&termID=T1", nil, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var current dto.MonthRevenueResponse
	suite.decode(w, &current)
	suite.True(current.TotalRevenue.Equal(decimal.RequireFromString("112.50")), current.TotalRevenue.String())

	w = suite.do(http.MethodGet, fmt.Sprintf("/api/v1/reports/revenue/yearly?sessionID=2024&termID=T1&year=%d", lastMonth.Year()), nil, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var yearly dto.YearlyRevenueResponse
	suite.decode(w, &yearly)
	suite.Len(yearly.Months, 12)
	suite.True(yearly.Months[lastMonth.Month()-1].TotalRevenue.Equal(decimal.NewFromInt(30)))

	w = suite.do(http.MethodGet, "/api/v1/reports/revenue/current?termID=T1", nil, suite.token)
	suite.Equal(http.StatusBadRequest, w.Code)

	other := suite.issue("bursar-2", "school-2")
	w = suite.do(http.MethodGet, "/api/v1/reports/revenue/current?sessionID=2024&termID=T1", nil, other)
	suite.decode(w, &current)
	suite.True(current.TotalRevenue.IsZero())
}

func (suite *LedgerAPITestSuite) TestMonthlyTransactions() {
	acc := suite.createAccount("Main Account")
	for _, amount := range []string{"10", "20", "30"} {
		suite.Require().Equal(http.StatusCreated, suite.post("deposits", gin.H{"accountID": acc.AccountID, "sessionID": "2024", "termID": "T1", "amount": amount}).Code)
	}
	now := time.Now().UTC()

	path := fmt.Sprintf("/api/v1/reports/accounts/%s/transactions?year=%d&month=%d&limit=2", acc.AccountID, now.Year(), int(now.Month()))
	w := suite.do(http.MethodGet, path, nil, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var page dto.ListTransactionsResponse
	suite.decode(w, &page)
	suite.Len(page.Transactions, 2)
	suite.Require().NotNil(page.NextToken)

	w = suite.do(http.MethodGet, path+"&nextToken="+url.QueryEscape(*page.NextToken), nil, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var last dto.ListTransactionsResponse
	suite.decode(w, &last)
	suite.Len(last.Transactions, 1)
	suite.Nil(last.NextToken)

	w = suite.do(http.MethodGet, fmt.Sprintf("/api/v1/reports/accounts/%s/transactions?year=%d&month=13", acc.AccountID, now.Year()), nil, suite.token)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *LedgerAPITestSuite) TestStudentFeeStatus() {
	suite.store.Fees.AddStudent(domain.Student{StudentID: "s1", SchoolID: "school-1", ClassID: "jss1", FullName: "Ada"})
	suite.store.Fees.AddStudent(domain.Student{StudentID: "s2", SchoolID: "school-1", ClassID: "jss1", FullName: "Bayo"})
	suite.store.Fees.AddFeeStructure(domain.FeeStructure{
		StructureID: "fs1", SchoolID: "school-1", ClassID: "jss1", SessionID: "2024", TermID: "T1",
		Lines: []domain.FeeLine{
			{FeeLineID: "tuition", Name: "Tuition", Amount: decimal.NewFromInt(100)},
			{FeeLineID: "library", Name: "Library", Amount: decimal.NewFromInt(20)},
		},
	})

	w := suite.post("fees-payments", gin.H{
		"sessionID": "2024", "termID": "T1", "studentID": "s1", "classID": "jss1",
		"feeLines": []gin.H{{"feeLineID": "tuition", "paid": "100"}, {"feeLineID": "library", "paid": "20"}},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.do(http.MethodGet, "/api/v1/reports/classes/jss1/fee-status?sessionID=2024&termID=T1", nil, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var report dto.FeeStatusResponse
	suite.decode(w, &report)
	suite.Require().Len(report.Students, 2)
	statuses := map[string]domain.FeeStatus{}
	for _, s := range report.Students {
		statuses[s.StudentID] = s.Status
	}
	suite.Equal(domain.FeeFullyPaid, statuses["s1"])
	suite.Equal(domain.FeeUnpaid, statuses["s2"])

	w = suite.do(http.MethodGet, "/api/v1/reports/classes/jss9/fee-status?sessionID=2024&termID=T1", nil, suite.token)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *LedgerAPITestSuite) TestRecomputeAndSweep() {
	suite.Require().Equal(http.StatusCreated, suite.post("deposits", gin.H{"sessionID": "2024", "termID": "T1", "amount": "75"}).Code)
	month := time.Now().UTC().Format("2006-01")

	w := suite.do(http.MethodPost, "/api/v1/revenue/recompute", dto.RecomputeRevenueRequest{SessionID: "2024", TermID: "T1", Month: month}, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var rebuilt dto.MonthRevenueResponse
	suite.decode(w, &rebuilt)
	suite.True(rebuilt.TotalRevenue.Equal(decimal.NewFromInt(75)))

	w = suite.do(http.MethodPost, "/api/v1/revenue/recompute", dto.RecomputeRevenueRequest{SessionID: "2024", TermID: "T1", Month: "March"}, suite.token)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/reconciliation/sweep", nil, suite.token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var swept dto.SweepResponse
	suite.decode(w, &swept)
	suite.Equal(0, swept.Resolved)

	w = suite.do(http.MethodPost, "/api/v1/reconciliation/sweep?limit=-1", nil, suite.token)
	suite.Equal(http.StatusBadRequest, w.Code)
}

// --- Run Test Suite ---
func TestLedgerAPI(t *testing.T) {
	suite.Run(t, new(LedgerAPITestSuite))
}
