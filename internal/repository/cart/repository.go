package cart

import (
	"context"

	"marketplace-orders/internal/domain"
)

type CreateCartInput struct {
	CustomerID string
	Currency   string
}

type Repository interface {
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	// AddLineItem merges into an existing line for the same product.
	AddLineItem(ctx context.Context, cartID string, line domain.CartLine) error
	// ChangeLineItemQuantity removes the line when quantity is zero.
	ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error
	// Clear removes every line from the cart.
	Clear(ctx context.Context, cartID string) error
}

func notFound(id string) error {
	return &domain.NotFoundError{Resource: "cart", ID: id}
}
