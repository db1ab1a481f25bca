package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marketplace-orders/internal/domain"
)

func TestSimulator_Outcomes(t *testing.T) {
	cases := []struct {
		name    string
		outcome domain.PaymentOutcome
	}{
		{name: "success", outcome: domain.PaymentSucceeded},
		{name: "failure", outcome: domain.PaymentFailed},
		{name: "timeout", outcome: domain.PaymentTimedOut},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Simulator{Method: domain.PaymentStripe, Outcome: tc.outcome}
			res, err := s.Charge(context.Background(), ChargeRequest{Amount: decimal.NewFromInt(1)})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Outcome != tc.outcome {
				t.Fatalf("expected %s, got %s", tc.outcome, res.Outcome)
			}
			if tc.outcome == domain.PaymentSucceeded && !strings.HasPrefix(res.Reference, "pi_") {
				t.Fatalf("expected stripe reference, got %q", res.Reference)
			}
			if tc.outcome != domain.PaymentSucceeded && res.Reason == "" {
				t.Fatalf("expected a reason")
			}
		})
	}
}

func TestSimulator_HonoursDeadline(t *testing.T) {
	s := &Simulator{Method: domain.PaymentPhonePe, Delay: time.Minute, Outcome: domain.PaymentSucceeded}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := s.Charge(ctx, ChargeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.PaymentTimedOut {
		t.Fatalf("expected timeout, got %s", res.Outcome)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("charge ignored the deadline")
	}
}

func TestRegistry(t *testing.T) {
	r := SimulatedRegistry(0, domain.PaymentSucceeded)
	if got := r.Methods(); len(got) != 3 {
		t.Fatalf("expected 3 methods, got %v", got)
	}
	if !r.Supports(domain.PaymentRazorpay) {
		t.Fatalf("razorpay should be registered")
	}
	_, err := r.Lookup(domain.PaymentMethod("PayPal"))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
