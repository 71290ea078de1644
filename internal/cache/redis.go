package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis stores products as JSON strings under product:{id}. Cache errors are
// logged and treated as misses; the store stays the source of truth.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.AppMetrics
	logger  zerolog.Logger
}

var _ ProductCache = (*Redis)(nil)

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration, m *metrics.AppMetrics, logger zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl, metrics: m, logger: logger}, nil
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *Redis) Get(ctx context.Context, id int64) (*models.Product, bool) {
	raw, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Int64("product_id", id).Msg("redis get failed")
		}
		c.metrics.Count(ctx, c.metrics.CacheMisses, 1, "cache", "redis")
		return nil, false
	}

	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn().Err(err).Int64("product_id", id).Msg("discarding undecodable cache entry")
		c.Invalidate(ctx, id)
		c.metrics.Count(ctx, c.metrics.CacheMisses, 1, "cache", "redis")
		return nil, false
	}
	c.metrics.Count(ctx, c.metrics.CacheHits, 1, "cache", "redis")
	return &p, true
}

func (c *Redis) Set(ctx context.Context, p *models.Product) {
	raw, err := json.Marshal(p)
	if err != nil {
		c.logger.Warn().Err(err).Int64("product_id", p.ID).Msg("failed to encode product for cache")
		return
	}
	if err := c.client.Set(ctx, productKey(p.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("product_id", p.ID).Msg("redis set failed")
	}
}

func (c *Redis) Invalidate(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Ints64("product_ids", ids).Msg("redis delete failed")
	}
}

// Close closes the client.
func (c *Redis) Close() error {
	return c.client.Close()
}
