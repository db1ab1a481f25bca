// Package payment defines the charge contract the checkout flow depends on
// and simulated providers standing in for real gateways.
package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"marketplace-orders/internal/domain"
)

type ChargeRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	Method   domain.PaymentMethod
	Metadata map[string]string
}

// Result is the terminal answer of a provider. Reference is set on success,
// Reason on failure or timeout.
type Result struct {
	Outcome   domain.PaymentOutcome
	Reference string
	Reason    string
}

// Provider charges one payment method. Implementations must return when ctx
// is done.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (Result, error)
}

// Registry resolves the provider for a payment method.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.PaymentMethod]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.PaymentMethod]Provider)}
}

func (r *Registry) Register(method domain.PaymentMethod, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[method] = p
}

func (r *Registry) Lookup(method domain.PaymentMethod) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[method]
	if !ok {
		return nil, domain.Invalid("paymentMethod", fmt.Sprintf("unsupported payment method %q", method))
	}
	return p, nil
}

// Supports reports whether a provider is registered for method.
func (r *Registry) Supports(method domain.PaymentMethod) bool {
	_, err := r.Lookup(method)
	return err == nil
}

// Methods lists registered methods sorted by name.
func (r *Registry) Methods() []domain.PaymentMethod {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PaymentMethod, 0, len(r.providers))
	for m := range r.providers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
