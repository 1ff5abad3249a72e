package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/school_ledger/internal/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	keyPrefix = "school_ledger:revenue:"
	genPrefix = "school_ledger:revenue_gen:"
)

// RevenueCache is a read-through cache in front of a RevenueRepository. Writes go to the
// wrapped store first, then bump the bucket's generation and drop the cached row. A reader
// only fills the cache if the generation it saw before loading is still current, so a row
// loaded before a concurrent write is never stored. Redis failures never fail a call; the
// store stays the source of truth.
type RevenueCache struct {
	next   portsrepo.RevenueRepository
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewRevenueCache wraps next with a cache kept in client for ttl.
func NewRevenueCache(next portsrepo.RevenueRepository, client goredis.UniversalClient, ttl time.Duration) *RevenueCache {
	return &RevenueCache{next: next, client: client, ttl: ttl}
}

var _ portsrepo.RevenueRepository = (*RevenueCache)(nil)

// NewClient builds a client from a redis:// URL.
func NewClient(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func cacheKey(key domain.BucketKey) string {
	key.MonthStart = domain.MonthStart(key.MonthStart)
	return keyPrefix + key.String()
}

func genKey(key domain.BucketKey) string {
	key.MonthStart = domain.MonthStart(key.MonthStart)
	return genPrefix + key.String()
}

func (c *RevenueCache) IncrementRevenue(ctx context.Context, key domain.BucketKey, delta decimal.Decimal) error {
	if err := c.next.IncrementRevenue(ctx, key, delta); err != nil {
		return err
	}
	c.invalidate(ctx, key)
	return nil
}

func (c *RevenueCache) SetRevenue(ctx context.Context, key domain.BucketKey, total decimal.Decimal) error {
	if err := c.next.SetRevenue(ctx, key, total); err != nil {
		return err
	}
	c.invalidate(ctx, key)
	return nil
}

func (c *RevenueCache) FindRevenue(ctx context.Context, key domain.BucketKey) (*domain.RevenueSummary, error) {
	k := cacheKey(key)
	raw, err := c.client.Get(ctx, k).Bytes()
	switch {
	case err == nil:
		var summary domain.RevenueSummary
		if jerr := json.Unmarshal(raw, &summary); jerr == nil {
			return &summary, nil
		}
		middleware.GetLoggerFromCtx(ctx).Warn("Discarding undecodable cached revenue row", slog.String("key", k))
	case !errors.Is(err, goredis.Nil):
		middleware.GetLoggerFromCtx(ctx).Warn("Revenue cache read failed, falling back to store",
			slog.String("key", k),
			slog.String("error", err.Error()))
	}

	g := genKey(key)
	seen, genErr := c.generation(ctx, c.client, g)

	summary, err := c.next.FindRevenue(ctx, key)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		c.fill(ctx, k, g, seen, summary)
	}
	return summary, nil
}

// getter is satisfied by both the client and a watched transaction.
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// generation reads the write counter of a bucket. A missing counter is generation zero.
func (c *RevenueCache) generation(ctx context.Context, cmd getter, g string) (int64, error) {
	n, err := cmd.Get(ctx, g).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return n, err
}

// fill stores summary under k unless the bucket was written since generation seen.
func (c *RevenueCache) fill(ctx context.Context, k, g string, seen int64, summary *domain.RevenueSummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	err = c.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := c.generation(ctx, tx, g)
		if err != nil {
			return err
		}
		if current != seen {
			return goredis.TxFailedErr
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, k, payload, c.ttl)
			return nil
		})
		return err
	}, g)
	switch {
	case err == nil:
	case errors.Is(err, goredis.TxFailedErr):
		middleware.GetLoggerFromCtx(ctx).Debug("Skipping revenue cache fill, bucket changed while loading",
			slog.String("key", k))
	default:
		middleware.GetLoggerFromCtx(ctx).Warn("Revenue cache write failed",
			slog.String("key", k),
			slog.String("error", err.Error()))
	}
}

// ListRevenueForYear is not cached; yearly reports are rare and read twelve rows at once.
func (c *RevenueCache) ListRevenueForYear(ctx context.Context, schoolID, sessionID, termID string, year int) ([]domain.RevenueSummary, error) {
	return c.next.ListRevenueForYear(ctx, schoolID, sessionID, termID, year)
}

func (c *RevenueCache) invalidate(ctx context.Context, key domain.BucketKey) {
	k := cacheKey(key)
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, genKey(key))
		pipe.Del(ctx, k)
		return nil
	})
	if err != nil {
		// A stale row lives at most ttl
		middleware.GetLoggerFromCtx(ctx).Warn("Revenue cache invalidation failed",
			slog.String("key", k),
			slog.String("error", err.Error()))
	}
}
