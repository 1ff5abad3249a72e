package handlers

import (
	portssvc "github.com/SscSPs/school_ledger/internal/core/ports/services"
	"github.com/SscSPs/school_ledger/internal/middleware"
	"github.com/SscSPs/school_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// Extra middlewares run inside /api/v1 after authentication, e.g. per-user rate limiting.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	checks map[string]HealthChecker,
	v1Middlewares ...gin.HandlerFunc,
) {
	r.GET("/", getHome)
	r.GET("/health", healthHandler(checks))

	setupAPIV1Routes(r, cfg, services, v1Middlewares...)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	v1Middlewares ...gin.HandlerFunc,
) {
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	v1.Use(v1Middlewares...)

	registerAccountRoutes(v1, services.Account)
	registerLedgerRoutes(v1, services.Ledger)
	registerReportingRoutes(v1, services.Reporting)
	registerReconciliationRoutes(v1, services.Revenue, services.Reconciliation)
}
