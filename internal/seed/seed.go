package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"

	"marketplace-orders/internal/importer"
)

//go:embed demo_orders.csv
var demoOrders []byte

// Apply inserts the demo orders ORD-001 to ORD-008 for manual testing. It is
// idempotent: orders that already exist are left untouched.
func Apply(ctx context.Context, orders importer.OrderWriter, logger *zap.Logger) (int, error) {
	n, err := importer.NewCSVImporter(bytes.NewReader(demoOrders), orders, logger).Run(ctx)
	if err != nil {
		return n, fmt.Errorf("seed demo orders: %w", err)
	}
	return n, nil
}
