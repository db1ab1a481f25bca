// Package events publishes order lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-orders/internal/domain"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

type Event struct {
	Type        string          `json:"type"`
	OrderID     string          `json:"orderId"`
	CustomerID  string          `json:"customerId"`
	VendorID    string          `json:"vendorId"`
	From        domain.Status   `json:"from,omitempty"`
	To          domain.Status   `json:"to"`
	Role        domain.Role     `json:"role,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// NewEvent describes the latest state of o.
func NewEvent(typ string, o domain.Order, from domain.Status, role domain.Role) Event {
	return Event{
		Type:        typ,
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		VendorID:    o.VendorID,
		From:        from,
		To:          o.Status,
		Role:        role,
		TotalAmount: o.TotalAmount,
		OccurredAt:  o.UpdatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type logPublisher struct {
	logger *zap.Logger
}

// NewLog returns a publisher that only writes events to the log.
func NewLog(logger *zap.Logger) Publisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info("order event",
		zap.String("type", e.Type),
		zap.String("order_id", e.OrderID),
		zap.String("from", string(e.From)),
		zap.String("to", string(e.To)),
		zap.String("role", string(e.Role)),
	)
	return nil
}

func (p *logPublisher) Close() error { return nil }
