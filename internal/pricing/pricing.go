// Package pricing derives order money fields from line items.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"marketplace-orders/internal/domain"
)

// DefaultTaxRate is the flat marketplace sales tax.
var DefaultTaxRate = decimal.RequireFromString("0.08")

var (
	errNegativeDiscount = errors.New("discount must not be negative")
	errDiscountTooLarge = errors.New("discount exceeds order total")
)

type Calculator struct {
	taxRate decimal.Decimal
}

func New(taxRate decimal.Decimal) *Calculator {
	if taxRate.IsNegative() {
		taxRate = decimal.Zero
	}
	return &Calculator{taxRate: taxRate}
}

type Breakdown struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Price computes subtotal + tax - discount, each rounded to cents.
func (c *Calculator) Price(lines []domain.LineItem, discount decimal.Decimal) (Breakdown, error) {
	if discount.IsNegative() {
		return Breakdown{}, errNegativeDiscount
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(c.taxRate).Round(2)
	gross := subtotal.Add(tax)
	discount = discount.Round(2)
	if discount.GreaterThan(gross) {
		return Breakdown{}, errDiscountTooLarge
	}
	return Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    gross.Sub(discount),
	}, nil
}

// Apply writes a breakdown onto an order.
func (b Breakdown) Apply(o *domain.Order) {
	o.Subtotal = b.Subtotal
	o.Tax = b.Tax
	o.Discount = b.Discount
	o.TotalAmount = b.Total
}
