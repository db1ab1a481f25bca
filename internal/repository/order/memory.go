package order

import (
	"context"
	"sync"

	"marketplace-orders/internal/domain"
)

type memoryRepo struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	ids    []string
	keys   map[string]string
}

// NewMemory returns an in-process store. Reads copy under a read lock so
// callers always see a consistent snapshot.
func NewMemory() Repository {
	return &memoryRepo{
		orders: make(map[string]domain.Order),
		keys:   make(map[string]string),
	}
}

func (r *memoryRepo) Insert(_ context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if o.IdempotencyKey != "" {
		if _, ok := r.keys[o.IdempotencyKey]; ok {
			return domain.ErrAlreadyExists
		}
		r.keys[o.IdempotencyKey] = o.ID
	}
	r.orders[o.ID] = o.Clone()
	r.ids = append(r.ids, o.ID)
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, notFound(id)
	}
	c := o.Clone()
	return &c, nil
}

func (r *memoryRepo) Update(_ context.Context, id string, fn Mutator) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, notFound(id)
	}
	next := o.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	r.orders[id] = next
	out := next.Clone()
	return &out, nil
}

func (r *memoryRepo) List(_ context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]domain.Order, 0)
	for _, id := range r.ids {
		o := r.orders[id]
		if f.Matches(o) {
			matched = append(matched, o.Clone())
		}
	}
	return f.Page(matched), len(matched), nil
}

func (r *memoryRepo) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.Status]int)
	for _, o := range r.orders {
		counts[o.Status]++
	}
	return counts, nil
}
