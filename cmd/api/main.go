package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"marketplace-orders/internal/config"
	"marketplace-orders/internal/db"
	"marketplace-orders/internal/domain"
	"marketplace-orders/internal/events"
	"marketplace-orders/internal/httpserver"
	"marketplace-orders/internal/logger"
	"marketplace-orders/internal/metrics"
	"marketplace-orders/internal/migrate"
	"marketplace-orders/internal/payment"
	"marketplace-orders/internal/policy"
	"marketplace-orders/internal/pricing"
	cartrepo "marketplace-orders/internal/repository/cart"
	"marketplace-orders/internal/repository/idempotency"
	orderrepo "marketplace-orders/internal/repository/order"
	"marketplace-orders/internal/seed"
	cartsvc "marketplace-orders/internal/service/cart"
	"marketplace-orders/internal/service/checkout"
	"marketplace-orders/internal/service/dashboard"
	ordersvc "marketplace-orders/internal/service/order"
	"marketplace-orders/internal/tracing"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New("api", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		lg.Fatal("init tracing", zap.Error(err))
	}

	pol, err := policy.LoadFile(cfg.PolicyFile)
	if err != nil {
		lg.Fatal("load transition policy", zap.String("file", cfg.PolicyFile), zap.Error(err))
	}
	taxRate, err := cfg.Tax()
	if err != nil {
		lg.Fatal("parse tax rate", zap.Error(err))
	}

	readyChecks := map[string]httpserver.ReadyCheck{}

	var (
		orders orderrepo.Repository
		carts  cartrepo.Repository
	)
	switch cfg.OrderStore {
	case config.StorePostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString, lg)
		if err != nil {
			lg.Fatal("connect to db", zap.Error(err))
		}
		defer pool.Close()
		if err := migrate.Apply(ctx, pool); err != nil {
			lg.Fatal("apply migrations", zap.Error(err))
		}
		orders = orderrepo.NewPostgres(pool, lg.Named("orders"))
		carts = cartrepo.NewPostgres(pool)
		readyChecks["postgres"] = pool.Ping
	default:
		orders = orderrepo.NewMemory()
		carts = cartrepo.NewMemory()
	}

	var idem idempotency.Store
	switch cfg.IdempotencyStore {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		idem = idempotency.NewRedis(rdb, cfg.IdempotencyTTL)
		readyChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	default:
		idem = idempotency.NewMemory(cfg.IdempotencyTTL)
	}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafka(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, lg.Named("events"))
	} else {
		publisher = events.NewLog(lg.Named("events"))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			lg.Warn("close event publisher", zap.Error(err))
		}
	}()

	m := metrics.New()
	payments := payment.SimulatedRegistry(cfg.PaymentDelay, domain.PaymentOutcome(cfg.PaymentOutcome))

	cartService := cartsvc.New(carts, lg.Named("cart"))
	orderService := ordersvc.New(orders, pol, ordersvc.Options{
		Pricing:   pricing.New(taxRate),
		Carts:     cartService,
		Methods:   payments,
		Publisher: publisher,
		Metrics:   m,
		Logger:    lg.Named("order"),
		Currency:  cfg.Currency,
	})
	checkoutService := checkout.New(orderService, cartService, payments, idem, checkout.Options{
		PaymentTimeout: cfg.PaymentTimeout,
		Tracer:         tracing.Tracer("checkout"),
		Metrics:        m,
		Logger:         lg.Named("checkout"),
	})

	if cfg.SeedDemo {
		n, err := seed.Apply(ctx, orders, lg.Named("seed"))
		if err != nil {
			lg.Fatal("seed demo orders", zap.Error(err))
		}
		lg.Info("demo orders seeded", zap.Int("inserted", n))
	}

	srv, err := httpserver.New(cfg.HTTPAddr, lg.Named("http"), httpserver.Deps{
		Orders:      orderService,
		Checkout:    checkoutService,
		Carts:       cartService,
		Dashboard:   dashboard.New(orderService),
		Metrics:     m.Handler(),
		Tracer:      tracing.Tracer("http"),
		ReadyChecks: readyChecks,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		lg.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		lg.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		lg.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	} else {
		lg.Info("server stopped")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		lg.Warn("flush traces", zap.Error(err))
	}
}
