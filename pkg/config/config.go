package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Config holds application configuration from environment variables
type Config struct {
	// Application
	AppPort     string
	FrontendURL string
	LogLevel    string
	LogFormat   string

	// Storage: "mysql" or "memory"
	StoreDriver  string
	StoreTimeout time.Duration

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Product cache; an empty RedisAddr keeps the cache in process
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProductCacheTTL time.Duration

	// Order events; no brokers disables publishing
	KafkaBrokers    []string
	KafkaOrderTopic string

	// Payment gateway
	PaymentKeyID     string
	PaymentKeySecret string
	PaymentAPIURL    string
	PaymentCurrency  string
	GatewayTimeout   time.Duration

	// Checkout
	ShippingFee     decimal.Decimal
	CartMaxQuantity int

	// Stale-order reclaimer
	ReclaimSchedule string
	ReclaimMinAge   time.Duration

	// OpenTelemetry
	OTELMetricsEnabled        bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPProtocol  string
	OTELExporterOTLPHeaders   string // For SigNoz Cloud: signoz-ingestion-key=<key>
	OTELExporterOTLPInsecure  bool   // true for http://, false for https://
	OTELServiceName           string
	OTELServiceVersion        string
	OTELDeploymentEnvironment string
}

// LoadConfig loads configuration from .env file and environment variables with defaults
func LoadConfig() *Config {
	// .env file is optional
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			log.Warn().Err(err).Msg("error loading .env file")
		}
	}

	return &Config{
		AppPort:     getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		StoreDriver:  getEnv("STORE_DRIVER", "mysql"),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 5*time.Second),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "retail"),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		ProductCacheTTL: getEnvDuration("PRODUCT_CACHE_TTL", 5*time.Minute),

		KafkaBrokers:    getEnvList("KAFKA_BROKERS"),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order-events"),

		PaymentKeyID:     getEnv("PAYMENT_KEY_ID", ""),
		PaymentKeySecret: getEnv("PAYMENT_KEY_SECRET", ""),
		PaymentAPIURL:    getEnv("PAYMENT_API_URL", "https://api.razorpay.com"),
		PaymentCurrency:  getEnv("PAYMENT_CURRENCY", "INR"),
		GatewayTimeout:   getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),

		ShippingFee:     getEnvDecimal("SHIPPING_FEE", decimal.NewFromInt(60)),
		CartMaxQuantity: getEnvInt("CART_MAX_QUANTITY", 40),

		// 00:00 on the 1st of every month
		ReclaimSchedule: getEnv("RECLAIM_SCHEDULE", "0 0 1 * *"),
		ReclaimMinAge:   getEnvDuration("RECLAIM_MIN_AGE", 0),

		OTELMetricsEnabled:        getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPProtocol:  getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "http/protobuf"),
		OTELExporterOTLPHeaders:   getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		OTELExporterOTLPInsecure:  getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "retail-order-engine"),
		OTELServiceVersion:        getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		OTELDeploymentEnvironment: getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", "development"),
	}
}

// GetDSN returns the MySQL DSN string
func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		return false
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			log.Warn().Str("key", key).Str("value", value).Msg("invalid integer, using default")
			return defaultValue
		}
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			log.Warn().Str("key", key).Str("value", value).Msg("invalid decimal, using default")
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
