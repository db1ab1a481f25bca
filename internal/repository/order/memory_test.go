package order

import (
	"context"
	"errors"
	"testing"

	"marketplace-orders/internal/domain"
)

func newOrder(id string, status domain.Status) domain.Order {
	return domain.Order{
		ID:        id,
		Status:    status,
		LineItems: []domain.LineItem{{ProductID: "p-" + id, ProductName: "Item " + id, Quantity: 1}},
	}
}

func TestMemory_InsertGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	if err := repo.Insert(ctx, newOrder("ORD-1", domain.StatusAwaitingPayment)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Insert(ctx, newOrder("ORD-1", domain.StatusAwaitingPayment)); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.Get(ctx, "ORD-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.LineItems[0].Quantity = 99
	again, _ := repo.Get(ctx, "ORD-1")
	if again.LineItems[0].Quantity != 1 {
		t.Fatalf("store leaked internal state through Get")
	}

	_, err = repo.Get(ctx, "missing")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestMemory_IdempotencyKeyUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	a := newOrder("ORD-A", domain.StatusAwaitingPayment)
	a.IdempotencyKey = "key-1"
	b := newOrder("ORD-B", domain.StatusAwaitingPayment)
	b.IdempotencyKey = "key-1"
	if err := repo.Insert(ctx, a); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Insert(ctx, b); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := repo.Get(ctx, "ORD-B"); err == nil {
		t.Fatalf("rejected order must not be stored")
	}
}

func TestMemory_UpdateIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	_ = repo.Insert(ctx, newOrder("ORD-1", domain.StatusProcessing))

	_, err := repo.Update(ctx, "ORD-1", func(o *domain.Order) error {
		o.Status = domain.StatusShipped
		return errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	got, _ := repo.Get(ctx, "ORD-1")
	if got.Status != domain.StatusProcessing {
		t.Fatalf("failed update changed status to %s", got.Status)
	}

	updated, err := repo.Update(ctx, "ORD-1", func(o *domain.Order) error {
		o.Status = domain.StatusShipped
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != domain.StatusShipped {
		t.Fatalf("expected Shipped, got %s", updated.Status)
	}

	if _, err := repo.Update(ctx, "nope", func(*domain.Order) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemory_ListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	for _, id := range []string{"ORD-3", "ORD-1", "ORD-2"} {
		_ = repo.Insert(ctx, newOrder(id, domain.StatusProcessing))
	}
	_ = repo.Insert(ctx, newOrder("ORD-4", domain.StatusShipped))

	processing := domain.StatusProcessing
	orders, total, err := repo.List(ctx, domain.OrderFilter{Status: &processing})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d (total %d)", len(orders), total)
	}
	want := []string{"ORD-3", "ORD-1", "ORD-2"}
	for i, id := range want {
		if orders[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, orders[i].ID)
		}
	}

	page, total, _ := repo.List(ctx, domain.OrderFilter{Offset: 1, Limit: 2})
	if total != 4 || len(page) != 2 || page[0].ID != "ORD-1" {
		t.Fatalf("unexpected page %+v total %d", page, total)
	}
}

func TestMemory_CountByStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	_ = repo.Insert(ctx, newOrder("a", domain.StatusProcessing))
	_ = repo.Insert(ctx, newOrder("b", domain.StatusProcessing))
	_ = repo.Insert(ctx, newOrder("c", domain.StatusDisputed))

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[domain.StatusProcessing] != 2 || counts[domain.StatusDisputed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
