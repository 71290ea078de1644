package cache

import (
	"context"
	"sync"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
)

type cachedProduct struct {
	product models.Product
	expires time.Time
}

// Memory holds cached products in process
type Memory struct {
	mu      sync.RWMutex
	items   map[int64]cachedProduct
	ttl     time.Duration
	metrics *metrics.AppMetrics
	now     func() time.Time
}

var _ ProductCache = (*Memory)(nil)

// NewMemory creates an in-process cache whose entries live for ttl.
func NewMemory(ttl time.Duration, m *metrics.AppMetrics) *Memory {
	return &Memory{
		items:   make(map[int64]cachedProduct),
		ttl:     ttl,
		metrics: m,
		now:     time.Now,
	}
}

func (c *Memory) Get(ctx context.Context, id int64) (*models.Product, bool) {
	c.mu.RLock()
	cached, exists := c.items[id]
	c.mu.RUnlock()

	if !exists || !c.now().Before(cached.expires) {
		c.metrics.Count(ctx, c.metrics.CacheMisses, 1, "cache", "memory")
		return nil, false
	}
	c.metrics.Count(ctx, c.metrics.CacheHits, 1, "cache", "memory")
	p := cached.product
	p.Images = append([]string(nil), cached.product.Images...)
	return &p, true
}

func (c *Memory) Set(ctx context.Context, p *models.Product) {
	cp := *p
	cp.Images = append([]string(nil), p.Images...)

	c.mu.Lock()
	c.items[p.ID] = cachedProduct{product: cp, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Memory) Invalidate(ctx context.Context, ids ...int64) {
	c.mu.Lock()
	for _, id := range ids {
		delete(c.items, id)
	}
	c.mu.Unlock()
}
