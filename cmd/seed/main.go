package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"marketplace-orders/internal/config"
	"marketplace-orders/internal/db"
	"marketplace-orders/internal/logger"
	"marketplace-orders/internal/migrate"
	orderrepo "marketplace-orders/internal/repository/order"
	"marketplace-orders/internal/seed"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New("seed", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, lg)
	if err != nil {
		lg.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		lg.Fatal("apply migrations", zap.Error(err))
	}

	n, err := seed.Apply(ctx, orderrepo.NewPostgres(pool, lg), lg)
	if err != nil {
		lg.Fatal("seed apply", zap.Error(err))
	}
	lg.Info("seed applied", zap.Int("inserted", n))
}
