package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"marketplace-orders/internal/domain"
	orderrepo "marketplace-orders/internal/repository/order"
)

type stubOrderRepo struct {
	items []domain.Order
	err   error
}

func (s *stubOrderRepo) Insert(_ context.Context, o domain.Order) error {
	if s.err != nil {
		return s.err
	}
	s.items = append(s.items, o)
	return nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `id,customer,vendor,product,quantity,amount,status,date,address,paymentMethod,shippingProvider
ORD-101,John Doe,TechGear Pro,Premium Wireless Headphones,1,299.99,Processing,2025-06-11,"123 Main St, New York, NY 10001",stripe,
,,,Wireless Charger,2,49.99,,,,,
ORD-102,Nancy White,Home Essentials,Kitchen Blender,,$129.99,Refund Request,2025-06-04,"222 Oak St, Denver, CO 80202",Stripe,Delhivery`

	repo := &stubOrderRepo{}
	count, err := NewCSVImporter(strings.NewReader(csvData), repo, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 2 || len(repo.items) != 2 {
		t.Fatalf("expected 2 orders imported, got %d (%d saved)", count, len(repo.items))
	}

	first := repo.items[0]
	if len(first.LineItems) != 2 {
		t.Fatalf("expected continuation row to add a line item, got %d", len(first.LineItems))
	}
	if got := first.TotalAmount.StringFixed(2); got != "399.97" {
		t.Fatalf("expected total 399.97, got %s", got)
	}
	if first.CustomerID != "cust-john-doe" || first.VendorID != "techgear-pro" {
		t.Fatalf("unexpected derived ids %q %q", first.CustomerID, first.VendorID)
	}
	if first.PaymentMethod != domain.PaymentStripe || first.ShippingProvider != domain.DefaultShippingProvider {
		t.Fatalf("unexpected payment/shipping %s %s", first.PaymentMethod, first.ShippingProvider)
	}
	want := domain.Address{FirstName: "John", LastName: "Doe", Line1: "123 Main St", City: "New York", State: "NY", PostalCode: "10001"}
	if first.ShippingAddress != want {
		t.Fatalf("unexpected address %+v", first.ShippingAddress)
	}

	second := repo.items[1]
	if second.Status != domain.StatusRefundRequested {
		t.Fatalf("expected RefundRequested, got %s", second.Status)
	}
	if second.ShippingProvider != "Delhivery" {
		t.Fatalf("expected shipping provider to be preserved, got %s", second.ShippingProvider)
	}
	if len(second.History) != 1 || second.History[0].To != domain.StatusRefundRequested {
		t.Fatalf("expected import history entry, got %+v", second.History)
	}
}

func TestCSVImporter_SkipsExisting(t *testing.T) {
	csvData := `id,customer,vendor,product,amount,status,date,address,paymentMethod
ORD-1,Tom Green,Sports World,Yoga Mat,39.99,Disputed,2025-06-05,"111 Birch Ave, Seattle, WA 98101",PhonePe`

	repo := orderrepo.NewMemory()
	for run := 0; run < 2; run++ {
		count, err := NewCSVImporter(strings.NewReader(csvData), repo, nil).Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if want := 1 - run; count != want {
			t.Fatalf("run %d: expected %d imported, got %d", run, want, count)
		}
	}
}

func TestCSVImporter_Errors(t *testing.T) {
	header := "id,customer,vendor,product,amount,status,date,address,paymentMethod\n"
	cases := map[string]string{
		"missing column": "id,customer\nORD-1,Tom",
		"bad status":     header + `ORD-1,Tom Green,Sports World,Yoga Mat,39.99,Lost,2025-06-05,"111 Birch Ave, Seattle, WA 98101",PhonePe`,
		"bad amount":     header + `ORD-1,Tom Green,Sports World,Yoga Mat,abc,Disputed,2025-06-05,"111 Birch Ave, Seattle, WA 98101",PhonePe`,
		"bad date":       header + `ORD-1,Tom Green,Sports World,Yoga Mat,39.99,Disputed,05/06/2025,"111 Birch Ave, Seattle, WA 98101",PhonePe`,
		"bad address":    header + `ORD-1,Tom Green,Sports World,Yoga Mat,39.99,Disputed,2025-06-05,Seattle,PhonePe`,
		"orphan line":    header + `,,,Yoga Mat,39.99,,,,`,
		"unknown method": header + `ORD-1,Tom Green,Sports World,Yoga Mat,39.99,Disputed,2025-06-05,"111 Birch Ave, Seattle, WA 98101",PayPal`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewCSVImporter(strings.NewReader(data), &stubOrderRepo{}, nil).Run(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	boom := errors.New("boom")
	data := header + `ORD-1,Tom Green,Sports World,Yoga Mat,39.99,Disputed,2025-06-05,"111 Birch Ave, Seattle, WA 98101",PhonePe`
	_, err := NewCSVImporter(strings.NewReader(data), &stubOrderRepo{err: boom}, nil).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
