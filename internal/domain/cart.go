package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const CartStateActive = "active"

type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customerId,omitempty"`
	Currency   string     `json:"currency"`
	State      string     `json:"state"`
	CreatedAt  time.Time  `json:"createdAt"`
	Lines      []CartLine `json:"lineItems"`
}

type CartLine struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	VendorID   string          `json:"vendorId"`
	VendorName string          `json:"vendorName"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
}

// Subtotal sums unit price times quantity over all lines.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}
