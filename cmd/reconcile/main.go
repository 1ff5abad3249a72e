// Command reconcile runs one reconciliation sweep and exits. Schedule it externally, e.g. from cron.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/school_ledger/internal/core/services"
	"github.com/SscSPs/school_ledger/internal/middleware"
	"github.com/SscSPs/school_ledger/internal/platform/bootstrap"
	"github.com/SscSPs/school_ledger/internal/platform/config"
)

func main() {
	limit := flag.Int("limit", 0, "maximum number of pending tasks to process, 0 uses the default")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline for the sweep")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = middleware.WithLogger(ctx, logger.With(slog.String("job", "reconcile")))

	infra, err := bootstrap.Build(ctx, cfg, logger, false)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infra.Close()

	container := services.NewServiceContainer(infra.Repos, middleware.ContextIdentityResolver{})
	resolved, err := container.Reconciliation.Sweep(ctx, *limit)
	if err != nil {
		logger.Error("Reconciliation sweep failed", slog.String("error", err.Error()))
		infra.Close()
		os.Exit(1)
	}
	logger.Info("Reconciliation sweep complete", slog.Int("resolved", resolved))
}
