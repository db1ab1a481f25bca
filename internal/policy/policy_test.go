package policy

import (
	"strings"
	"testing"

	"marketplace-orders/internal/domain"
)

func TestDefaultEdges(t *testing.T) {
	p := Default()
	edges := map[domain.Status][]domain.Status{
		domain.StatusAwaitingPayment: {domain.StatusProcessing, domain.StatusCancelled},
		domain.StatusProcessing:      {domain.StatusShipped, domain.StatusCancelled},
		domain.StatusShipped:         {domain.StatusDelivered},
		domain.StatusDelivered:       {domain.StatusDisputed, domain.StatusRefundRequested},
		domain.StatusDisputed:        {domain.StatusRefunded, domain.StatusDelivered},
		domain.StatusRefundRequested: {domain.StatusRefunded, domain.StatusDelivered},
	}
	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			_, got := p.Lookup(from, to)
			want := false
			for _, t2 := range edges[from] {
				if t2 == to {
					want = true
				}
			}
			if got != want {
				t.Fatalf("edge %s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
	for _, s := range []domain.Status{domain.StatusCancelled, domain.StatusRefunded} {
		if len(p.Targets(s)) != 0 {
			t.Fatalf("terminal status %s has targets %v", s, p.Targets(s))
		}
	}
}

func TestDefaultRoles(t *testing.T) {
	p := Default()
	shipped, _ := p.Lookup(domain.StatusProcessing, domain.StatusShipped)
	if shipped.Permits(domain.RoleCustomer) || !shipped.Permits(domain.RoleVendor) || !shipped.Permits(domain.RoleAdmin) {
		t.Fatalf("unexpected roles for shipped edge: %v", shipped.Roles)
	}
	resolve, _ := p.Lookup(domain.StatusDisputed, domain.StatusRefunded)
	if resolve.Permits(domain.RoleVendor) || !resolve.Permits(domain.RoleAdmin) {
		t.Fatalf("only admin resolves disputes, got %v", resolve.Roles)
	}
	dispute, _ := p.Lookup(domain.StatusDelivered, domain.StatusDisputed)
	if !dispute.Permits(domain.RoleCustomer) {
		t.Fatalf("customer must be able to dispute")
	}
	unpaid, _ := p.Lookup(domain.StatusAwaitingPayment, domain.StatusCancelled)
	if unpaid.Permits(domain.RoleCustomer) || unpaid.Permits(domain.RoleVendor) || !unpaid.Permits(domain.RoleSystem) {
		t.Fatalf("only system and admin cancel unpaid orders, got %v", unpaid.Roles)
	}
}

func TestLoadOverridesRoles(t *testing.T) {
	doc := `
transitions:
  - from: refund-request
    to: Refunded
    roles: [admin]
`
	p, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := p.Lookup(domain.StatusRefundRequested, domain.StatusRefunded)
	if !ok {
		t.Fatalf("edge missing after override")
	}
	if e.Permits(domain.RoleVendor) || !e.Permits(domain.RoleAdmin) {
		t.Fatalf("override not applied: %v", e.Roles)
	}
	other, _ := p.Lookup(domain.StatusProcessing, domain.StatusShipped)
	if !other.Permits(domain.RoleVendor) {
		t.Fatalf("untouched edge lost its roles")
	}
	if def, _ := Default().Lookup(domain.StatusRefundRequested, domain.StatusRefunded); !def.Permits(domain.RoleVendor) {
		t.Fatalf("override leaked into default policy")
	}
}

func TestLoadRejectsUnknownEdge(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{name: "new edge", doc: "transitions:\n  - from: Shipped\n    to: Cancelled\n    roles: [admin]\n"},
		{name: "bad status", doc: "transitions:\n  - from: Lost\n    to: Cancelled\n    roles: [admin]\n"},
		{name: "bad role", doc: "transitions:\n  - from: Shipped\n    to: Delivered\n    roles: [courier]\n"},
		{name: "unknown key", doc: "edges: []\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tc.doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadFileEmptyPath(t *testing.T) {
	p, err := LoadFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Edges()) != 11 {
		t.Fatalf("expected 11 edges, got %d", len(p.Edges()))
	}
}
