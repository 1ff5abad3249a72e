package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
	"github.com/SscSPs/school_ledger/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	Identity portssvc.IdentityResolver
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogWarn logs a warning, attaching err when present
func (s *BaseService) LogWarn(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	args = append(args, keyvals...)
	logger.Warn(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// CurrentUser resolves the acting identity, failing with ErrUnauthenticated when there is none.
func (s *BaseService) CurrentUser(ctx context.Context) (*domain.Identity, error) {
	if s.Identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	identity, err := s.Identity.CurrentUser(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to resolve current user")
		return nil, err
	}
	if identity == nil || identity.UserID == "" || identity.SchoolID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	return identity, nil
}
