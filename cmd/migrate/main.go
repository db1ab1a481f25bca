package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"marketplace-orders/internal/config"
	"marketplace-orders/internal/db"
	"marketplace-orders/internal/logger"
	"marketplace-orders/internal/migrate"
)

func main() {
	var (
		down    int
		version bool
	)
	flag.IntVar(&down, "down", 0, "Roll back this many migrations instead of applying")
	flag.BoolVar(&version, "version", false, "Print the current schema version and exit")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New("migrate", cfg.LogLevel, cfg.LogFormat)
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

	switch {
	case version:
		v, dirty, err := migrate.Version(ctx, pool)
		if err != nil {
			lg.Fatal("read schema version", zap.Error(err))
		}
		lg.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	case down > 0:
		if err := migrate.Rollback(ctx, pool, down); err != nil {
			lg.Fatal("roll back migrations", zap.Int("steps", down), zap.Error(err))
		}
		lg.Info("migrations rolled back", zap.Int("steps", down))
	default:
		if err := migrate.Apply(ctx, pool); err != nil {
			lg.Fatal("apply migrations", zap.Error(err))
		}
		lg.Info("migrations applied")
	}
}
