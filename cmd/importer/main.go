package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"marketplace-orders/internal/config"
	"marketplace-orders/internal/db"
	"marketplace-orders/internal/importer"
	"marketplace-orders/internal/logger"
	orderrepo "marketplace-orders/internal/repository/order"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to an order history CSV export")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New("importer", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, lg)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, orderrepo.NewPostgres(pool, lg), lg)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("Imported %d orders from %s in %s\n", count, filePath, time.Since(start).Truncate(time.Millisecond))
}
