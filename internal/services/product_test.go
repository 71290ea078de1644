package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/cache"
	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// batchRecorder wraps a store and records the ids of every GetProducts call.
type batchRecorder struct {
	store.Store
	mu      sync.Mutex
	batches [][]int64
}

func (r *batchRecorder) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return r.Store.Atomic(ctx, func(tx store.Tx) error {
		return fn(recordingTx{Tx: tx, rec: r})
	})
}

func (r *batchRecorder) seen() [][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches
}

type recordingTx struct {
	store.Tx
	rec *batchRecorder
}

func (t recordingTx) Products() store.ProductRepository {
	return recordingProducts{ProductRepository: t.Tx.Products(), rec: t.rec}
}

type recordingProducts struct {
	store.ProductRepository
	rec *batchRecorder
}

func (p recordingProducts) GetProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	p.rec.mu.Lock()
	p.rec.batches = append(p.rec.batches, append([]int64(nil), ids...))
	p.rec.mu.Unlock()
	return p.ProductRepository.GetProducts(ctx, ids)
}

func TestLookupLoadsRepeatedMissesOnce(t *testing.T) {
	f := newFixture(t)
	rec := &batchRecorder{Store: f.store}
	catalog := NewCatalogService(rec, cache.NewMemory(time.Minute, metrics.NewNoop()), time.Second, zerolog.Nop())

	found, err := catalog.lookup(context.Background(), []int64{shirt, socks, shirt, 999, shirt, 999})
	require.NoError(t, err)

	require.Len(t, rec.seen(), 1)
	assert.Equal(t, []int64{shirt, socks, 999}, rec.seen()[0])
	assert.Len(t, found, 2)
	assert.Equal(t, "Linen Shirt", found[shirt].Title)

	// Everything found is now cached; only the unknown id goes back to the store.
	_, err = catalog.lookup(context.Background(), []int64{shirt, socks, 999})
	require.NoError(t, err)
	require.Len(t, rec.seen(), 2)
	assert.Equal(t, []int64{999}, rec.seen()[1])
}

func TestReadCartWithSameProductTwice(t *testing.T) {
	f := newFixture(t)
	f.add(t, alice, shirt, 1, "blue", "M")
	f.add(t, alice, shirt, 2, "white", "L")

	rec := &batchRecorder{Store: f.store}
	catalog := NewCatalogService(rec, cache.NewMemory(time.Minute, metrics.NewNoop()), time.Second, zerolog.Nop())
	cart := NewCartService(rec, catalog, metrics.NewNoop(), 40, time.Second, zerolog.Nop())

	_, err := cart.ReadCart(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, rec.seen(), 1)
	assert.Equal(t, []int64{shirt}, rec.seen()[0])
}
