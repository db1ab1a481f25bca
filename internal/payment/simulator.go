package payment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace-orders/internal/domain"
)

// Simulator answers every charge with a fixed outcome after Delay.
type Simulator struct {
	Method  domain.PaymentMethod
	Delay   time.Duration
	Outcome domain.PaymentOutcome
	Reason  string
}

func (s *Simulator) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Result{Outcome: domain.PaymentTimedOut, Reason: "provider did not answer: " + ctx.Err().Error()}, nil
	case <-timer.C:
	}

	switch s.Outcome {
	case domain.PaymentFailed:
		reason := s.Reason
		if reason == "" {
			reason = "card declined"
		}
		return Result{Outcome: domain.PaymentFailed, Reason: reason}, nil
	case domain.PaymentTimedOut:
		return Result{Outcome: domain.PaymentTimedOut, Reason: "provider timed out"}, nil
	}
	return Result{Outcome: domain.PaymentSucceeded, Reference: reference(s.Method)}, nil
}

// reference builds provider-style ids such as "pi_..." for Stripe.
func reference(method domain.PaymentMethod) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	switch method {
	case domain.PaymentStripe:
		return "pi_" + id
	case domain.PaymentRazorpay:
		return "pay_" + id
	case domain.PaymentPhonePe:
		return "T" + strings.ToUpper(id)
	}
	return id
}

// SimulatedRegistry registers a Simulator for each built-in method.
func SimulatedRegistry(delay time.Duration, outcome domain.PaymentOutcome) *Registry {
	r := NewRegistry()
	for _, m := range []domain.PaymentMethod{domain.PaymentStripe, domain.PaymentPhonePe, domain.PaymentRazorpay} {
		r.Register(m, &Simulator{Method: m, Delay: delay, Outcome: outcome})
	}
	return r
}
