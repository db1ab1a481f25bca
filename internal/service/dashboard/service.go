// Package dashboard aggregates order data for the admin and vendor views.
package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"marketplace-orders/internal/domain"
	ordersvc "marketplace-orders/internal/service/order"
)

// RecentLimit is how many orders the vendor view lists.
const RecentLimit = 5

type orderReader interface {
	ListOrders(ctx context.Context, f domain.OrderFilter) (ordersvc.ListResult, error)
}

type Service struct {
	orders orderReader
}

func New(orders orderReader) *Service {
	return &Service{orders: orders}
}

type Alert struct {
	Status domain.Status `json:"status"`
	Label  string        `json:"label"`
	Count  int           `json:"count"`
}

type AdminStats struct {
	TotalOrders int                   `json:"totalOrders"`
	Revenue     decimal.Decimal       `json:"revenue"`
	ByStatus    map[domain.Status]int `json:"byStatus"`
	Alerts      []Alert               `json:"alerts"`
}

type VendorStats struct {
	VendorID        string          `json:"vendorId"`
	TotalOrders     int             `json:"totalOrders"`
	Revenue         decimal.Decimal `json:"revenue"`
	PendingOrders   int             `json:"pendingOrders"`
	AwaitingPayment int             `json:"awaitingPayment"`
	RecentOrders    []domain.Order  `json:"recentOrders"`
}

// earning reports whether an order's total counts as revenue.
func earning(s domain.Status) bool {
	switch s {
	case domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered:
		return true
	}
	return false
}

// Admin derives every figure from one listing so the counts always add up
// to TotalOrders.
func (s *Service) Admin(ctx context.Context) (AdminStats, error) {
	all, err := s.orders.ListOrders(ctx, domain.OrderFilter{})
	if err != nil {
		return AdminStats{}, err
	}

	stats := AdminStats{
		TotalOrders: len(all.Orders),
		Revenue:     decimal.Zero,
		ByStatus:    make(map[domain.Status]int, len(domain.Statuses)),
		Alerts:      []Alert{},
	}
	for _, st := range domain.Statuses {
		stats.ByStatus[st] = 0
	}
	for _, o := range all.Orders {
		stats.ByStatus[o.Status]++
		if earning(o.Status) {
			stats.Revenue = stats.Revenue.Add(o.TotalAmount)
		}
	}
	for _, st := range []domain.Status{domain.StatusDisputed, domain.StatusRefundRequested} {
		if n := stats.ByStatus[st]; n > 0 {
			stats.Alerts = append(stats.Alerts, Alert{Status: st, Label: st.Label(), Count: n})
		}
	}
	return stats, nil
}

func (s *Service) Vendor(ctx context.Context, vendorID string) (VendorStats, error) {
	if vendorID == "" {
		return VendorStats{}, domain.Invalid("vendorId", "required")
	}
	res, err := s.orders.ListOrders(ctx, domain.OrderFilter{VendorID: vendorID})
	if err != nil {
		return VendorStats{}, fmt.Errorf("vendor %s orders: %w", vendorID, err)
	}

	stats := VendorStats{
		VendorID:    vendorID,
		TotalOrders: res.Total,
		Revenue:     decimal.Zero,
	}
	for _, o := range res.Orders {
		switch o.Status {
		case domain.StatusProcessing:
			stats.PendingOrders++
		case domain.StatusAwaitingPayment:
			stats.AwaitingPayment++
		}
		if earning(o.Status) {
			stats.Revenue = stats.Revenue.Add(o.TotalAmount)
		}
	}

	recent := append([]domain.Order(nil), res.Orders...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	stats.RecentOrders = recent
	return stats, nil
}
