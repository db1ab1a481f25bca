package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marketplace-orders/internal/domain"
	ordersvc "marketplace-orders/internal/service/order"
)

type stubOrders struct {
	orders []domain.Order
	err    error
}

func (s *stubOrders) ListOrders(_ context.Context, f domain.OrderFilter) (ordersvc.ListResult, error) {
	if s.err != nil {
		return ordersvc.ListResult{}, s.err
	}
	var out []domain.Order
	for _, o := range s.orders {
		if f.Matches(o) {
			out = append(out, o)
		}
	}
	return ordersvc.ListResult{Orders: f.Page(out), Total: len(out)}, nil
}

func order(id, vendor string, st domain.Status, total string, day int) domain.Order {
	return domain.Order{
		ID:          id,
		VendorID:    vendor,
		Status:      st,
		TotalAmount: decimal.RequireFromString(total),
		CreatedAt:   time.Date(2025, 6, day, 9, 0, 0, 0, time.UTC),
	}
}

func sample() *stubOrders {
	return &stubOrders{orders: []domain.Order{
		order("ORD-001", "techgear", domain.StatusProcessing, "299.99", 11),
		order("ORD-002", "soundwave", domain.StatusShipped, "79.99", 10),
		order("ORD-003", "fittech", domain.StatusDelivered, "199.99", 9),
		order("ORD-005", "techgear", domain.StatusCancelled, "49.99", 7),
		order("ORD-007", "sports", domain.StatusDisputed, "39.99", 5),
		order("ORD-008", "home", domain.StatusRefundRequested, "129.99", 4),
		order("ORD-009", "techgear", domain.StatusAwaitingPayment, "10.00", 12),
	}}
}

func TestAdmin(t *testing.T) {
	stats, err := New(sample()).Admin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalOrders != 7 {
		t.Fatalf("expected 7 orders, got %d", stats.TotalOrders)
	}
	if got := stats.Revenue.StringFixed(2); got != "579.97" {
		t.Fatalf("expected revenue 579.97, got %s", got)
	}
	if stats.ByStatus[domain.StatusRefunded] != 0 || stats.ByStatus[domain.StatusCancelled] != 1 {
		t.Fatalf("unexpected counts %v", stats.ByStatus)
	}
	if len(stats.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %v", stats.Alerts)
	}
	if stats.Alerts[1].Label != "Refund Request" {
		t.Fatalf("expected Refund Request alert, got %q", stats.Alerts[1].Label)
	}
}

// growingOrders gains an order on every listing, like a store taking
// writes between two reads.
type growingOrders struct {
	calls int
}

func (g *growingOrders) ListOrders(context.Context, domain.OrderFilter) (ordersvc.ListResult, error) {
	g.calls++
	var out []domain.Order
	for i := 0; i < g.calls; i++ {
		out = append(out, order("ORD-G", "v", domain.StatusDisputed, "5", 1))
	}
	return ordersvc.ListResult{Orders: out, Total: len(out)}, nil
}

func TestAdmin_CountsMatchTotal(t *testing.T) {
	src := &growingOrders{}
	stats, err := New(src).Admin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected one listing, got %d", src.calls)
	}
	sum := 0
	for _, n := range stats.ByStatus {
		sum += n
	}
	if sum != stats.TotalOrders {
		t.Fatalf("expected counts to sum to %d, got %d", stats.TotalOrders, sum)
	}
	if len(stats.ByStatus) != len(domain.Statuses) {
		t.Fatalf("expected every status in counts, got %v", stats.ByStatus)
	}
	if len(stats.Alerts) != 1 || stats.Alerts[0].Count != stats.TotalOrders {
		t.Fatalf("unexpected alerts %v", stats.Alerts)
	}
}

func TestVendor(t *testing.T) {
	stats, err := New(sample()).Vendor(context.Background(), "techgear")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalOrders != 3 || stats.PendingOrders != 1 || stats.AwaitingPayment != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := stats.Revenue.StringFixed(2); got != "299.99" {
		t.Fatalf("expected revenue 299.99, got %s", got)
	}
	if stats.RecentOrders[0].ID != "ORD-009" {
		t.Fatalf("expected newest order first, got %s", stats.RecentOrders[0].ID)
	}
}

func TestVendor_RecentIsCapped(t *testing.T) {
	src := &stubOrders{}
	for day := 1; day <= 8; day++ {
		src.orders = append(src.orders, order("ORD-X", "v", domain.StatusProcessing, "1", day))
	}
	stats, err := New(src).Vendor(context.Background(), "v")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats.RecentOrders) != RecentLimit {
		t.Fatalf("expected %d recent orders, got %d", RecentLimit, len(stats.RecentOrders))
	}
	if stats.RecentOrders[0].CreatedAt.Day() != 8 {
		t.Fatalf("expected most recent first")
	}
}

func TestVendor_Errors(t *testing.T) {
	var verr *domain.ValidationError
	if _, err := New(sample()).Vendor(context.Background(), ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	boom := errors.New("boom")
	if _, err := New(&stubOrders{err: boom}).Vendor(context.Background(), "v"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
