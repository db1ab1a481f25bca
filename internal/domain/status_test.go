package domain

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Status
		ok   bool
	}{
		{name: "canonical", raw: "RefundRequested", want: StatusRefundRequested, ok: true},
		{name: "label", raw: "Refund Request", want: StatusRefundRequested, ok: true},
		{name: "slug", raw: "refund-request", want: StatusRefundRequested, ok: true},
		{name: "upper slug", raw: "AWAITING-PAYMENT", want: StatusAwaitingPayment, ok: true},
		{name: "snake", raw: "awaiting_payment", want: StatusAwaitingPayment, ok: true},
		{name: "us spelling", raw: "canceled", want: StatusCancelled, ok: true},
		{name: "padded", raw: "  disputed ", want: StatusDisputed, ok: true},
		{name: "unknown", raw: "lost", ok: false},
		{name: "empty", raw: "", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseStatus(tc.raw)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("ParseStatus(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestStatusLabelAndSlugRoundTrip(t *testing.T) {
	for _, s := range Statuses {
		if got, ok := ParseStatus(s.Slug()); !ok || got != s {
			t.Fatalf("slug %q parsed to %q, %v", s.Slug(), got, ok)
		}
		if got, ok := ParseStatus(s.Label()); !ok || got != s {
			t.Fatalf("label %q parsed to %q, %v", s.Label(), got, ok)
		}
	}
	if StatusRefundRequested.Slug() != "refund-request" {
		t.Fatalf("unexpected slug %q", StatusRefundRequested.Slug())
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range Statuses {
		want := s == StatusCancelled || s == StatusRefunded
		if s.Terminal() != want {
			t.Fatalf("%s terminal = %v", s, s.Terminal())
		}
	}
}
