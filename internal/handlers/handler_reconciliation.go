package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/SscSPs/school_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reconciliationHandler exposes the operator repairs for derived totals.
type reconciliationHandler struct {
	revenue        portssvc.RevenueAggregatorSvc
	reconciliation portssvc.ReconciliationSvc
}

func registerReconciliationRoutes(rg *gin.RouterGroup, revenue portssvc.RevenueAggregatorSvc, reconciliation portssvc.ReconciliationSvc) {
	h := &reconciliationHandler{revenue: revenue, reconciliation: reconciliation}

	rg.POST("/revenue/recompute", h.recomputeRevenue)
	rg.POST("/reconciliation/sweep", h.sweep)
}

// recomputeRevenue godoc
// @Summary Recompute a revenue bucket
// @Description Rebuilds one month of the caller's school from its source entries
// @Tags reconciliation
// @Accept  json
// @Produce  json
// @Param   bucket body dto.RecomputeRevenueRequest true "Bucket to rebuild"
// @Success 200 {object} dto.MonthRevenueResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to recompute revenue"
// @Security BearerAuth
// @Router /api/v1/revenue/recompute [post]
func (h *reconciliationHandler) recomputeRevenue(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	identity, ok := middleware.GetIdentityFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Identity not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.RecomputeRevenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecomputeRevenue", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		logger.Warn("Invalid month for RecomputeRevenue", slog.String("month", req.Month))
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be formatted as YYYY-MM"})
		return
	}

	key := domain.NewBucketKey(identity.SchoolID, req.SessionID, req.TermID, month)
	total, err := h.revenue.Recompute(c.Request.Context(), key)
	if err != nil {
		respondWithError(c, logger, err, "Failed to recompute revenue")
		return
	}

	logger.Info("Revenue bucket recomputed", slog.String("bucket", key.String()), slog.String("total", total.String()))
	c.JSON(http.StatusOK, dto.MonthRevenueResponse{MonthStart: key.MonthStart, TotalRevenue: total})
}

// sweep godoc
// @Summary Sweep reconciliation tasks
// @Description Resolves pending repairs of balances and revenue buckets
// @Tags reconciliation
// @Produce  json
// @Param   limit query int false "Maximum tasks to resolve, 0 uses the default"
// @Success 200 {object} dto.SweepResponse
// @Failure 400 {object} map[string]string "Invalid limit"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Sweep failed"
// @Security BearerAuth
// @Router /api/v1/reconciliation/sweep [post]
func (h *reconciliationHandler) sweep(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	resolved, err := h.reconciliation.Sweep(c.Request.Context(), limit)
	if err != nil {
		respondWithError(c, logger, err, "Failed to sweep reconciliation tasks")
		return
	}

	logger.Info("Reconciliation sweep finished", slog.Int("resolved", resolved))
	c.JSON(http.StatusOK, dto.SweepResponse{Resolved: resolved})
}
