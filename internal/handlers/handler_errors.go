package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// respondWithError maps a service error onto an HTTP status and writes it.
// Unexpected failures are logged at ERROR and hidden behind fallbackMsg.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, fallbackMsg string) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr) && appErr.Code != 0:
		logger.Warn("Request failed", slog.Int("status", appErr.Code), slog.String("error", err.Error()))
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
	case errors.Is(err, apperrors.ErrAggregationInconsistency):
		var inc *apperrors.InconsistencyError
		if errors.As(err, &inc) {
			logger.Error("Ledger left inconsistent, reconciliation queued",
				slog.String("step", inc.Step),
				slog.String("entry_id", inc.EntryID),
				slog.String("account_id", inc.AccountID),
				slog.String("attempted_delta", inc.AttemptedDelta.String()),
				slog.String("error", err.Error()))
		} else {
			logger.Error("Ledger left inconsistent", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallbackMsg})
	case errors.Is(err, apperrors.ErrUnauthenticated):
		logger.Warn("Unauthenticated request", slog.String("error", err.Error()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		logger.Warn("Insufficient funds", slog.String("error", err.Error()))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("State conflict", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(fallbackMsg, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallbackMsg})
	}
}
