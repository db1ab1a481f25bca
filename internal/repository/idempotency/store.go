// Package idempotency maps checkout idempotency keys to at most one order.
package idempotency

import (
	"context"
	"time"
)

// DefaultTTL bounds how long a key is remembered.
const DefaultTTL = 24 * time.Hour

// pendingMarker is stored while a key is reserved but not bound.
const pendingMarker = "pending"

type Store interface {
	// Reserve claims key for a new checkout. It returns "" when the caller
	// now owns the key, the bound order id when the key was already used,
	// and domain.ErrCheckoutInProgress when another checkout holds it.
	Reserve(ctx context.Context, key string) (string, error)
	// Bind records the order created for a reserved key.
	Bind(ctx context.Context, key, orderID string) error
	// Release drops a reservation that never produced an order.
	Release(ctx context.Context, key string) error
}
