package services

import (
	"context"
	"testing"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/events"
	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReclaimDeletesOnlyStaleProvisionalOrders(t *testing.T) {
	f := newFixture(t)
	old := time.Now().Add(-72 * time.Hour)

	stale := putOrder(f, alice, models.OrderStatusCreated, 260, old)
	fresh := putOrder(f, alice, models.OrderStatusCreated, 260, time.Now())
	var kept []int64
	for _, st := range []models.OrderStatus{models.OrderStatusPlaced, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled} {
		kept = append(kept, putOrder(f, bob, st, 260, old))
	}

	n, err := f.reclaimer.Reclaim(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, ok := f.store.Order(stale)
	assert.False(t, ok)
	_, ok = f.store.Order(fresh)
	assert.True(t, ok, "orders younger than the minimum age are kept")
	for _, id := range kept {
		_, ok := f.store.Order(id)
		assert.True(t, ok)
	}
	assert.Equal(t, []string{events.TypeOrdersReclaimed}, f.pub.types())
}

func TestReclaimWithoutMinAgeDeletesEveryProvisionalOrder(t *testing.T) {
	f := newFixture(t)
	reclaimer, err := NewReclaimer(f.store, f.pub, metrics.NewNoop(), "0 0 1 * *", 0, time.Second, zerolog.Nop())
	require.NoError(t, err)

	hourOld := putOrder(f, alice, models.OrderStatusCreated, 260, time.Now().Add(-time.Hour))
	monthOld := putOrder(f, bob, models.OrderStatusCreated, 260, time.Now().Add(-30*24*time.Hour))
	placed := putOrder(f, bob, models.OrderStatusPlaced, 260, time.Now().Add(-time.Hour))

	n, err := reclaimer.Reclaim(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for _, id := range []int64{hourOld, monthOld} {
		_, ok := f.store.Order(id)
		assert.False(t, ok)
	}
	_, ok := f.store.Order(placed)
	assert.True(t, ok)
}

func TestReclaimNothingToDo(t *testing.T) {
	f := newFixture(t)
	n, err := f.reclaimer.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.pub.types())
}

func TestNewReclaimerRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	_, err := NewReclaimer(f.store, events.Noop{}, metrics.NewNoop(), "every month", time.Hour, time.Second, zerolog.Nop())
	assert.Error(t, err)
}

func TestReclaimerRunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.reclaimer.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reclaimer did not stop")
	}
}
