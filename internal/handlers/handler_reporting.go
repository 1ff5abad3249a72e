package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/SscSPs/school_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reportingHandler handles HTTP requests related to financial reports
type reportingHandler struct {
	reportingService portssvc.ReportingSvc
}

func newReportingHandler(rs portssvc.ReportingSvc) *reportingHandler {
	return &reportingHandler{reportingService: rs}
}

// registerReportingRoutes registers the read-only report routes.
func registerReportingRoutes(rg *gin.RouterGroup, reportingService portssvc.ReportingSvc) {
	h := newReportingHandler(reportingService)

	reports := rg.Group("/reports")
	{
		reports.GET("/accounts/:id/transactions", h.monthlyTransactions)
		reports.GET("/classes/:classID/fee-status", h.studentFeeStatus)
		reports.GET("/revenue/current", h.currentMonthRevenue)
		reports.GET("/revenue/yearly", h.yearlyRevenue)
	}
}

// monthlyTransactions godoc
// @Summary Monthly account statement
// @Description Lists the deposits and expenses of an account for one month, oldest first
// @Tags reports
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   year query int true "Year"
// @Param   month query int true "Month (1-12)"
// @Param   limit query int false "Page size" default(50)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters or token"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to list transactions"
// @Security BearerAuth
// @Router /api/v1/reports/accounts/{id}/transactions [get]
func (h *reportingHandler) monthlyTransactions(c *gin.Context) {
	accountID := c.Param("id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("account_id", accountID))

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for MonthlyTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.reportingService.MonthlyTransactions(c.Request.Context(), accountID, params)
	if err != nil {
		respondWithError(c, logger, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// currentMonthRevenue godoc
// @Summary Current month revenue
// @Tags reports
// @Produce  json
// @Param   sessionID query string true "Academic session"
// @Param   termID query string true "Term"
// @Success 200 {object} dto.MonthRevenueResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to load revenue"
// @Security BearerAuth
// @Router /api/v1/reports/revenue/current [get]
func (h *reportingHandler) currentMonthRevenue(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.RevenueParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for CurrentMonthRevenue", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.reportingService.CurrentMonthRevenue(c.Request.Context(), params.SessionID, params.TermID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to load revenue")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// yearlyRevenue godoc
// @Summary Yearly revenue
// @Description Returns twelve monthly totals. Year defaults to the current one
// @Tags reports
// @Produce  json
// @Param   sessionID query string true "Academic session"
// @Param   termID query string true "Term"
// @Param   year query int false "Calendar year"
// @Success 200 {object} dto.YearlyRevenueResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to load revenue"
// @Security BearerAuth
// @Router /api/v1/reports/revenue/yearly [get]
func (h *reportingHandler) yearlyRevenue(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.RevenueParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for YearlyRevenue", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	year := params.Year
	if year == 0 {
		year = time.Now().UTC().Year()
	}

	months, err := h.reportingService.YearlyRevenue(c.Request.Context(), params.SessionID, params.TermID, year)
	if err != nil {
		respondWithError(c, logger, err, "Failed to load revenue")
		return
	}

	c.JSON(http.StatusOK, dto.ToYearlyRevenueResponse(year, months))
}

// studentFeeStatus godoc
// @Summary Class fee status
// @Description Classifies every student of a class as fully paid, partially paid or unpaid
// @Tags reports
// @Produce  json
// @Param   classID path string true "Class ID"
// @Param   sessionID query string true "Academic session"
// @Param   termID query string true "Term"
// @Success 200 {object} dto.FeeStatusResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "No fee structure for the class"
// @Failure 500 {object} map[string]string "Failed to build fee status report"
// @Security BearerAuth
// @Router /api/v1/reports/classes/{classID}/fee-status [get]
func (h *reportingHandler) studentFeeStatus(c *gin.Context) {
	classID := c.Param("classID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("class_id", classID))

	var params dto.FeeStatusParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for StudentFeeStatus", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	rows, err := h.reportingService.StudentFeeStatus(c.Request.Context(), classID, params.SessionID, params.TermID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to build fee status report")
		return
	}

	logger.Info("Fee status report built", slog.Int("students", len(rows)))
	c.JSON(http.StatusOK, dto.ToFeeStatusResponse(classID, rows))
}
