package order

import (
	"context"

	"marketplace-orders/internal/domain"
)

// Mutator edits an order in place. Returning an error discards the edit.
type Mutator func(o *domain.Order) error

type Repository interface {
	// Insert stores a new order. It returns domain.ErrAlreadyExists when the
	// id or idempotency key is taken.
	Insert(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	// Update applies fn atomically: either the whole edit is stored or the
	// order is left untouched.
	Update(ctx context.Context, id string, fn Mutator) (*domain.Order, error)
	// List returns matching orders in insertion order, paged by the filter,
	// and the number of matches before paging.
	List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

func notFound(id string) error {
	return &domain.NotFoundError{Resource: "order", ID: id}
}
