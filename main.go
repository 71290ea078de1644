package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/api"
	"github.com/SigNoz/retail-order-engine/internal/cache"
	"github.com/SigNoz/retail-order-engine/internal/db"
	"github.com/SigNoz/retail-order-engine/internal/events"
	"github.com/SigNoz/retail-order-engine/internal/gateway"
	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/services"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/SigNoz/retail-order-engine/internal/store/memory"
	"github.com/SigNoz/retail-order-engine/pkg/config"
	"github.com/SigNoz/retail-order-engine/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped with error")
	}
	log.Info().Msg("server exited")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry metrics
	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("error shutting down meter provider")
		}
	}()

	st, closeStore, err := openStore(ctx, cfg, meterProvider, appMetrics, log)
	if err != nil {
		return err
	}
	defer closeStore()

	productCache, closeCache, err := openCache(ctx, cfg, appMetrics, log)
	if err != nil {
		return err
	}
	defer closeCache()

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaOrderTopic).Msg("publishing order events to kafka")
	}
	defer publisher.Close()

	if cfg.PaymentKeyID == "" || cfg.PaymentKeySecret == "" {
		log.Warn().Msg("payment gateway credentials are not set, online checkout will fail")
	}
	gw := gateway.New(cfg.PaymentAPIURL, cfg.PaymentKeyID, cfg.PaymentKeySecret, cfg.GatewayTimeout, log.With().Str("component", "gateway").Logger())

	// Initialize services
	catalog := services.NewCatalogService(st, productCache, cfg.StoreTimeout, log)
	cart := services.NewCartService(st, catalog, appMetrics, cfg.CartMaxQuantity, cfg.StoreTimeout, log)
	checkout := services.NewCheckoutService(st, catalog, gw, publisher, appMetrics, services.CheckoutConfig{
		ShippingFee:    cfg.ShippingFee,
		Currency:       cfg.PaymentCurrency,
		GatewayTimeout: cfg.GatewayTimeout,
		StoreTimeout:   cfg.StoreTimeout,
	}, log)
	orders := services.NewOrderService(st, publisher, appMetrics, cfg.StoreTimeout, log)
	ratings := services.NewRatingService(st, catalog, appMetrics, cfg.StoreTimeout, log)
	reclaimer, err := services.NewReclaimer(st, publisher, appMetrics, cfg.ReclaimSchedule, cfg.ReclaimMinAge, cfg.StoreTimeout, log)
	if err != nil {
		return err
	}

	app := api.NewApp(cfg, appMetrics, log, catalog, cart, checkout, orders, ratings)
	router := mux.NewRouter()
	app.SetupRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.AppPort).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return reclaimer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, provider metrics.Provider, m *metrics.AppMetrics, log zerolog.Logger) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil
	case "mysql":
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	database, err := db.NewDB(ctx, cfg.GetDSN(), provider, cfg.OTELServiceName, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schemaSQL, err := os.ReadFile("schema.sql")
	if err != nil {
		log.Warn().Err(err).Msg("could not read schema.sql, assuming database schema already exists")
	} else if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
		log.Warn().Err(err).Msg("could not initialize schema, assuming database schema already exists")
	}

	return db.NewStore(database, m), func() { database.Close() }, nil
}

func openCache(ctx context.Context, cfg *config.Config, m *metrics.AppMetrics, log zerolog.Logger) (cache.ProductCache, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.ProductCacheTTL, m), func() {}, nil
	}
	c, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ProductCacheTTL, m, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("product cache backed by redis")
	return c, func() { c.Close() }, nil
}
