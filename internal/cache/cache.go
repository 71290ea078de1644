// Package cache keeps read copies of catalog products. Writers that change a
// product invalidate its entry after their transaction commits.
package cache

import (
	"context"

	"github.com/SigNoz/retail-order-engine/internal/models"
)

// ProductCache is a read-through cache of products keyed by id.
type ProductCache interface {
	// Get returns the cached product and whether it was present.
	Get(ctx context.Context, id int64) (*models.Product, bool)
	Set(ctx context.Context, p *models.Product)
	Invalidate(ctx context.Context, ids ...int64)
}
