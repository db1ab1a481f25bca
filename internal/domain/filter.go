package domain

import "strings"

// OrderFilter selects orders for listing. Zero fields match everything.
type OrderFilter struct {
	Status     *Status
	SearchText string
	VendorID   string
	CustomerID string
	Offset     int
	Limit      int
}

// Matches applies every set criterion. SearchText is a case-insensitive
// substring match against id, customer name, vendor name and product names.
func (f OrderFilter) Matches(o Order) bool {
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.VendorID != "" && o.VendorID != f.VendorID {
		return false
	}
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(f.SearchText))
	if needle == "" {
		return true
	}
	haystack := append([]string{o.ID, o.CustomerName, o.VendorName}, o.ProductNames()...)
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// Page cuts a matched slice according to Offset and Limit.
func (f OrderFilter) Page(orders []Order) []Order {
	if f.Offset > 0 {
		if f.Offset >= len(orders) {
			return []Order{}
		}
		orders = orders[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(orders) {
		orders = orders[:f.Limit]
	}
	return orders
}
