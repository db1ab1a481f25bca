package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"marketplace-orders/internal/domain"
)

func line(price string, qty int) domain.LineItem {
	return domain.LineItem{ProductID: "p", ProductName: "n", Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestPrice(t *testing.T) {
	calc := New(DefaultTaxRate)
	cases := []struct {
		name     string
		lines    []domain.LineItem
		discount string
		total    string
		tax      string
	}{
		{name: "single item", lines: []domain.LineItem{line("79.99", 1)}, discount: "0", total: "86.39", tax: "6.40"},
		{name: "quantity", lines: []domain.LineItem{line("24.99", 2)}, discount: "0", total: "53.98", tax: "4.00"},
		{name: "discount", lines: []domain.LineItem{line("100", 1)}, discount: "10", total: "98", tax: "8"},
		{name: "free item", lines: []domain.LineItem{line("0", 3)}, discount: "0", total: "0", tax: "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := calc.Price(tc.lines, decimal.RequireFromString(tc.discount))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !b.Total.Equal(decimal.RequireFromString(tc.total)) {
				t.Fatalf("expected total %s, got %s", tc.total, b.Total)
			}
			if !b.Tax.Equal(decimal.RequireFromString(tc.tax)) {
				t.Fatalf("expected tax %s, got %s", tc.tax, b.Tax)
			}
		})
	}
}

func TestPriceRejectsBadDiscount(t *testing.T) {
	calc := New(DefaultTaxRate)
	lines := []domain.LineItem{line("10", 1)}
	if _, err := calc.Price(lines, decimal.NewFromInt(-1)); err == nil {
		t.Fatalf("expected error for negative discount")
	}
	if _, err := calc.Price(lines, decimal.RequireFromString("10.81")); err == nil {
		t.Fatalf("expected error for discount above total")
	}
	if _, err := calc.Price(lines, decimal.RequireFromString("10.80")); err != nil {
		t.Fatalf("discount equal to total should be allowed: %v", err)
	}
}
