package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace-orders/internal/domain"
)

type memoryRepo struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func NewMemory() Repository {
	return &memoryRepo{carts: make(map[string]*domain.Cart)}
}

func (r *memoryRepo) Create(_ context.Context, in CreateCartInput) (*domain.Cart, error) {
	c := &domain.Cart{
		ID:         uuid.NewString(),
		CustomerID: in.CustomerID,
		Currency:   in.Currency,
		State:      domain.CartStateActive,
		CreatedAt:  time.Now().UTC(),
		Lines:      []domain.CartLine{},
	}
	r.mu.Lock()
	r.carts[c.ID] = c
	r.mu.Unlock()
	return copyCart(c), nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return nil, notFound(id)
	}
	return copyCart(c), nil
}

func (r *memoryRepo) AddLineItem(_ context.Context, cartID string, line domain.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return notFound(cartID)
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == line.ProductID {
			c.Lines[i].Quantity += line.Quantity
			return nil
		}
	}
	line.ID = uuid.NewString()
	c.Lines = append(c.Lines, line)
	return nil
}

func (r *memoryRepo) ChangeLineItemQuantity(_ context.Context, cartID, lineItemID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return notFound(cartID)
	}
	for i := range c.Lines {
		if c.Lines[i].ID != lineItemID {
			continue
		}
		if quantity <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		} else {
			c.Lines[i].Quantity = quantity
		}
		return nil
	}
	return &domain.NotFoundError{Resource: "cart line", ID: lineItemID}
}

func (r *memoryRepo) Clear(_ context.Context, cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return notFound(cartID)
	}
	c.Lines = []domain.CartLine{}
	return nil
}

func copyCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Lines = append([]domain.CartLine{}, c.Lines...)
	return &out
}
