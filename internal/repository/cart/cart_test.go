package cart

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"marketplace-orders/internal/domain"
	"marketplace-orders/internal/migrate"
)

func exerciseRepo(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateCartInput{CustomerID: "cus-1", Currency: "USD"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Currency != "USD" || created.CustomerID != "cus-1" || len(created.Lines) != 0 {
		t.Fatalf("unexpected cart %+v", created)
	}

	line := domain.CartLine{ProductID: "spk", Name: "Bluetooth Speaker", VendorID: "ven-1", VendorName: "SoundWave", UnitPrice: decimal.RequireFromString("79.99"), Quantity: 1}
	if err := repo.AddLineItem(ctx, created.ID, line); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := repo.AddLineItem(ctx, created.ID, line); err != nil {
		t.Fatalf("AddLineItem again: %v", err)
	}

	fetched, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(fetched.Lines) != 1 || fetched.Lines[0].Quantity != 2 {
		t.Fatalf("expected one merged line of quantity 2, got %+v", fetched.Lines)
	}

	if err := repo.ChangeLineItemQuantity(ctx, created.ID, fetched.Lines[0].ID, 5); err != nil {
		t.Fatalf("ChangeLineItemQuantity: %v", err)
	}
	fetched, _ = repo.GetByID(ctx, created.ID)
	if fetched.Lines[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", fetched.Lines[0].Quantity)
	}
	if err := repo.ChangeLineItemQuantity(ctx, created.ID, "missing", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := repo.Clear(ctx, created.ID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	fetched, _ = repo.GetByID(ctx, created.ID)
	if len(fetched.Lines) != 0 {
		t.Fatalf("expected empty cart after Clear, got %d lines", len(fetched.Lines))
	}
	if err := repo.Clear(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown cart, got %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseRepo(t, NewMemory())
}

func TestPostgres(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE cart_lines, carts`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	exerciseRepo(t, NewPostgres(pool))
}
