package events

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"marketplace-orders/internal/domain"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)
	o := domain.Order{
		ID:          "ORD-001",
		CustomerID:  "john",
		VendorID:    "techgear",
		Status:      domain.StatusProcessing,
		TotalAmount: decimal.RequireFromString("86.39"),
		UpdatedAt:   at,
	}

	e := NewEvent(TypeOrderStatusChanged, o, domain.StatusAwaitingPayment, domain.RoleSystem)
	if e.From != domain.StatusAwaitingPayment || e.To != domain.StatusProcessing {
		t.Fatalf("unexpected edge %s -> %s", e.From, e.To)
	}
	if e.OrderID != "ORD-001" || e.VendorID != "techgear" || e.Role != domain.RoleSystem {
		t.Fatalf("unexpected event %+v", e)
	}
	if !e.OccurredAt.Equal(at) || e.TotalAmount.StringFixed(2) != "86.39" {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewLog(zap.New(core))

	o := domain.Order{ID: "ORD-002", Status: domain.StatusAwaitingPayment}
	if err := p.Publish(context.Background(), NewEvent(TypeOrderCreated, o, "", domain.RoleCustomer)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries := logs.FilterMessage("order event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != TypeOrderCreated || fields["order_id"] != "ORD-002" || fields["to"] != string(domain.StatusAwaitingPayment) {
		t.Fatalf("unexpected fields %v", fields)
	}
}
