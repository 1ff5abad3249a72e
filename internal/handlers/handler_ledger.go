package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/SscSPs/school_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler exposes the entry pipeline for every entry kind.
type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

func newLedgerHandler(ls portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{ledgerService: ls}
}

// registerLedgerRoutes registers /entries/:kind where kind is a slug such as "fees-payments".
func registerLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newLedgerHandler(ledgerService)

	entries := rg.Group("/entries/:kind")
	{
		entries.POST("", h.postEntry)
		entries.GET("/:id", h.getEntry)
		entries.PATCH("/:id", h.editEntry)
		entries.DELETE("/:id", h.voidEntry)
	}
}

// entryKind resolves the :kind path parameter, writing a 404 when it is unknown.
func entryKind(c *gin.Context, logger *slog.Logger) (domain.EntryKind, bool) {
	kind, err := domain.ParseEntryKind(c.Param("kind"))
	if err != nil {
		logger.Warn("Unknown entry kind", slog.String("kind", c.Param("kind")))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return kind, true
}

// postEntry godoc
// @Summary Post a ledger entry
// @Description Records a deposit, expense or student payment and updates balances and revenue
// @Tags entries
// @Accept  json
// @Produce  json
// @Param   kind path string true "Entry kind" Enums(deposits, expenses, fees-payments, class-payments, meal-payments)
// @Param   entry body dto.PostEntryRequest true "Entry details"
// @Success 201 {object} dto.EntryResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unknown kind or account"
// @Failure 409 {object} map[string]string "Duplicate transaction id"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 500 {object} map[string]string "Failed to post entry"
// @Security BearerAuth
// @Router /api/v1/entries/{kind} [post]
func (h *ledgerHandler) postEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	kind, ok := entryKind(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("kind", string(kind)))

	var req dto.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PostEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	entry, err := h.ledgerService.PostEntry(c.Request.Context(), kind, req)
	if err != nil {
		respondWithError(c, logger, err, "Failed to post entry")
		return
	}

	logger.Info("Entry posted", slog.String("entry_id", entry.EntryID), slog.String("amount", entry.Amount.String()))
	c.JSON(http.StatusCreated, dto.ToEntryResponse(entry))
}

// getEntry godoc
// @Summary Get a ledger entry
// @Tags entries
// @Produce  json
// @Param   kind path string true "Entry kind"
// @Param   id path string true "Entry ID"
// @Success 200 {object} dto.EntryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 500 {object} map[string]string "Failed to retrieve entry"
// @Security BearerAuth
// @Router /api/v1/entries/{kind}/{id} [get]
func (h *ledgerHandler) getEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	kind, ok := entryKind(c, logger)
	if !ok {
		return
	}
	entryID := c.Param("id")

	entry, err := h.ledgerService.GetEntry(c.Request.Context(), kind, entryID)
	if err != nil {
		respondWithError(c, logger.With(slog.String("entry_id", entryID)), err, "Failed to retrieve entry")
		return
	}

	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// editEntry godoc
// @Summary Edit a ledger entry
// @Description Changes amount, date, status, description or fee lines and moves the contribution accordingly
// @Tags entries
// @Accept  json
// @Produce  json
// @Param   kind path string true "Entry kind"
// @Param   id path string true "Entry ID"
// @Param   patch body dto.EditEntryRequest true "Fields to change"
// @Success 200 {object} dto.EntryResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry can no longer be edited"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 500 {object} map[string]string "Failed to edit entry"
// @Security BearerAuth
// @Router /api/v1/entries/{kind}/{id} [patch]
func (h *ledgerHandler) editEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	kind, ok := entryKind(c, logger)
	if !ok {
		return
	}
	entryID := c.Param("id")
	logger = logger.With(slog.String("kind", string(kind)), slog.String("entry_id", entryID))

	var req dto.EditEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for EditEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	entry, err := h.ledgerService.EditEntry(c.Request.Context(), kind, entryID, req)
	if err != nil {
		respondWithError(c, logger, err, "Failed to edit entry")
		return
	}

	logger.Info("Entry edited")
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// voidEntry godoc
// @Summary Void a ledger entry
// @Description Removes an entry, reverses its contribution and returns its last state
// @Tags entries
// @Produce  json
// @Param   kind path string true "Entry kind"
// @Param   id path string true "Entry ID"
// @Success 200 {object} dto.EntryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 500 {object} map[string]string "Failed to void entry"
// @Security BearerAuth
// @Router /api/v1/entries/{kind}/{id} [delete]
func (h *ledgerHandler) voidEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	kind, ok := entryKind(c, logger)
	if !ok {
		return
	}
	entryID := c.Param("id")
	logger = logger.With(slog.String("kind", string(kind)), slog.String("entry_id", entryID))

	entry, err := h.ledgerService.VoidEntry(c.Request.Context(), kind, entryID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to void entry")
		return
	}

	logger.Info("Entry voided")
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}
