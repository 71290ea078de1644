package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/pkg/config"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	h := parseHeaders("signoz-ingestion-key=abc, x-extra = 1 ,broken")
	assert.Equal(t, map[string]string{"signoz-ingestion-key": "abc", "x-extra": "1"}, h)
	assert.Empty(t, parseHeaders(""))
}

func TestInitMetricsDisabledUsesNoop(t *testing.T) {
	cfg := &config.Config{OTELMetricsEnabled: false, OTELServiceName: "svc"}
	m, provider, err := InitMetrics(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.NoError(t, provider.Shutdown(context.Background()))

	ctx := context.Background()
	m.RecordOrder(ctx, &models.Order{Status: models.OrderStatusPlaced, TotalAmount: decimal.NewFromInt(10)}, "INR")
	m.RecordInventory(ctx, &models.Product{ID: 1, StockCount: 3})
	m.RecordStatusChange(ctx, models.OrderStatusPlaced, models.OrderStatusShipped)
	m.RecordDBQuery(ctx, "SELECT", "orders", "SELECT 1", time.Now(), true)
	m.Count(ctx, m.CacheHits, 1, "cache", "memory")
}
