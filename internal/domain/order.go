package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultShippingProvider is the carrier assigned to new orders.
const DefaultShippingProvider = "Shiprocket"

type Order struct {
	ID               string          `json:"id"`
	CustomerID       string          `json:"customerId"`
	CustomerName     string          `json:"customerName"`
	CustomerEmail    string          `json:"customerEmail,omitempty"`
	VendorID         string          `json:"vendorId"`
	VendorName       string          `json:"vendorName"`
	LineItems        []LineItem      `json:"lineItems"`
	Status           Status          `json:"status"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	ShippingAddress  Address         `json:"shippingAddress"`
	ShippingProvider string          `json:"shippingProvider"`
	TrackingNumber   string          `json:"trackingNumber,omitempty"`
	Currency         string          `json:"currency"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Discount         decimal.Decimal `json:"discount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	IdempotencyKey   string          `json:"-"`
	CartID           string          `json:"cartId,omitempty"`
	History          []StatusChange  `json:"history"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type LineItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Total is unit price times quantity.
func (l LineItem) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// StatusChange is one entry of an order's history.
type StatusChange struct {
	From Status    `json:"from"`
	To   Status    `json:"to"`
	Role Role      `json:"role"`
	Note string    `json:"note,omitempty"`
	At   time.Time `json:"at"`
}

type Address struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
}

// MissingField returns the first required address field that is blank,
// or "" when the address is complete.
func (a Address) MissingField() string {
	fields := []struct {
		name, value string
	}{
		{"firstName", a.FirstName},
		{"lastName", a.LastName},
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return f.name
		}
	}
	return ""
}

func (a Address) Complete() bool {
	return a.MissingField() == ""
}

// String renders the address on one line, e.g. "123 Main St, New York, NY 10001".
func (a Address) String() string {
	return strings.TrimSpace(a.Line1 + ", " + a.City + ", " + a.State + " " + a.PostalCode)
}

// Customer is the buyer placing an order.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Clone returns a deep copy so stores can hand out orders safely.
func (o Order) Clone() Order {
	c := o
	c.LineItems = append([]LineItem(nil), o.LineItems...)
	c.History = append([]StatusChange(nil), o.History...)
	return c
}

// ProductNames lists the line item names in order.
func (o Order) ProductNames() []string {
	names := make([]string, 0, len(o.LineItems))
	for _, l := range o.LineItems {
		names = append(names, l.ProductName)
	}
	return names
}
