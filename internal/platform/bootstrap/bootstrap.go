// Package bootstrap assembles the storage stack selected by configuration. It is shared by
// the API server and the operator commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	rediscache "github.com/SscSPs/school_ledger/internal/adapters/cache/redis"
	"github.com/SscSPs/school_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/school_ledger/internal/adapters/database/pgsql"
	auditkafka "github.com/SscSPs/school_ledger/internal/adapters/events/kafka"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/school_ledger/internal/platform/config"
	"github.com/SscSPs/school_ledger/pkg/database"
	goredis "github.com/redis/go-redis/v9"
)

// Infrastructure is the wired storage stack plus the handles needed to check and close it.
type Infrastructure struct {
	Repos  portsrepo.RepositoryProvider
	Redis  *goredis.Client // nil when REDIS_URL is unset
	Checks map[string]func(ctx context.Context) error

	closers []func()
}

// Build connects the configured backends. With runMigrations set the postgres schema is
// migrated before the pool is opened.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, runMigrations bool) (*Infrastructure, error) {
	infra := &Infrastructure{Checks: map[string]func(ctx context.Context) error{}}

	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		infra.Repos = memory.NewStore().Provider()
	case config.StoragePostgres:
		if runMigrations {
			if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
				return nil, fmt.Errorf("failed to apply migrations: %w", err)
			}
		}
		pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database pool: %w", err)
		}
		infra.closers = append(infra.closers, func() { database.ClosePgxPool(pool) })
		infra.Checks["postgres"] = pool.Ping
		infra.Repos = pgsql.NewRepositoryProvider(pool)
		logger.Info("Database connection pool established.")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.RedisURL != "" {
		client, err := rediscache.NewClient(cfg.RedisURL)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		infra.Redis = client
		infra.closers = append(infra.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("Error closing redis client", slog.String("error", err.Error()))
			}
		})
		infra.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		infra.Repos.RevenueRepo = rediscache.NewRevenueCache(infra.Repos.RevenueRepo, client, cfg.RevenueCacheTTL)
		logger.Info("Revenue cache enabled", slog.Duration("ttl", cfg.RevenueCacheTTL))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := auditkafka.NewAuditPublisher(cfg.KafkaBrokers, cfg.AuditTopic, infra.Repos.AuditSink, logger)
		infra.closers = append(infra.closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("Error closing audit publisher", slog.String("error", err.Error()))
			}
		})
		infra.Repos.AuditSink = publisher
		logger.Info("Audit events published to kafka", slog.String("topic", cfg.AuditTopic))
	}

	return infra, nil
}

// Close releases every backend in reverse order of acquisition.
func (i *Infrastructure) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
	i.closers = nil
}
