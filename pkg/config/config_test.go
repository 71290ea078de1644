package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "CART_MAX_QUANTITY", "SHIPPING_FEE", "PAYMENT_CURRENCY", "RECLAIM_SCHEDULE", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 40, cfg.CartMaxQuantity)
	assert.True(t, cfg.ShippingFee.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "INR", cfg.PaymentCurrency)
	assert.Equal(t, "0 0 1 * *", cfg.ReclaimSchedule)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CART_MAX_QUANTITY", "12")
	t.Setenv("SHIPPING_FEE", "49.50")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("OTEL_METRICS_ENABLED", "no")
	t.Setenv("RECLAIM_MIN_AGE", "not-a-duration")

	cfg := LoadConfig()

	assert.Equal(t, 12, cfg.CartMaxQuantity)
	assert.True(t, cfg.ShippingFee.Equal(decimal.RequireFromString("49.5")))
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.OTELMetricsEnabled)
	assert.Zero(t, cfg.ReclaimMinAge, "every provisional order is swept by default")
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "1", DBName: "d"}
	assert.Equal(t, "u:p@tcp(h:1)/d?parseTime=true&charset=utf8mb4", cfg.GetDSN())
}
