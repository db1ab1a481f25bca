// Package policy holds the order state machine and the roles allowed to
// take each edge.
package policy

import (
	"slices"

	"marketplace-orders/internal/domain"
)

// Edge is one allowed status change.
type Edge struct {
	From    domain.Status
	To      domain.Status
	Trigger string
	Roles   []domain.Role
}

type edgeKey struct {
	from, to domain.Status
}

// Policy is immutable after construction and safe for concurrent use.
type Policy struct {
	edges map[edgeKey]Edge
	order []edgeKey
}

var defaultEdges = []Edge{
	{domain.StatusAwaitingPayment, domain.StatusProcessing, "payment confirmed", []domain.Role{domain.RoleSystem, domain.RoleAdmin}},
	{domain.StatusAwaitingPayment, domain.StatusCancelled, "payment failed or timed out", []domain.Role{domain.RoleSystem, domain.RoleAdmin}},
	{domain.StatusProcessing, domain.StatusShipped, "marked shipped", []domain.Role{domain.RoleVendor, domain.RoleAdmin}},
	{domain.StatusProcessing, domain.StatusCancelled, "vendor cancels", []domain.Role{domain.RoleVendor, domain.RoleAdmin}},
	{domain.StatusShipped, domain.StatusDelivered, "delivery confirmed", []domain.Role{domain.RoleVendor, domain.RoleAdmin}},
	{domain.StatusDelivered, domain.StatusDisputed, "customer disputes", []domain.Role{domain.RoleCustomer, domain.RoleAdmin}},
	{domain.StatusDelivered, domain.StatusRefundRequested, "refund requested", []domain.Role{domain.RoleCustomer, domain.RoleAdmin}},
	{domain.StatusDisputed, domain.StatusRefunded, "resolved: refund", []domain.Role{domain.RoleAdmin}},
	{domain.StatusDisputed, domain.StatusDelivered, "resolved: dismissed", []domain.Role{domain.RoleAdmin}},
	{domain.StatusRefundRequested, domain.StatusRefunded, "approved", []domain.Role{domain.RoleVendor, domain.RoleAdmin}},
	{domain.StatusRefundRequested, domain.StatusDelivered, "denied", []domain.Role{domain.RoleVendor, domain.RoleAdmin}},
}

// Default returns the built-in marketplace policy.
func Default() *Policy {
	return newPolicy(defaultEdges)
}

func newPolicy(edges []Edge) *Policy {
	p := &Policy{edges: make(map[edgeKey]Edge, len(edges))}
	for _, e := range edges {
		k := edgeKey{e.From, e.To}
		if _, seen := p.edges[k]; !seen {
			p.order = append(p.order, k)
		}
		e.Roles = slices.Clone(e.Roles)
		p.edges[k] = e
	}
	return p
}

// Lookup returns the edge from -> to if the state machine has one.
func (p *Policy) Lookup(from, to domain.Status) (Edge, bool) {
	e, ok := p.edges[edgeKey{from, to}]
	return e, ok
}

// Permits reports whether role may take the edge.
func (e Edge) Permits(role domain.Role) bool {
	return slices.Contains(e.Roles, role)
}

// Targets lists the statuses reachable from s in one step.
func (p *Policy) Targets(from domain.Status) []domain.Status {
	var out []domain.Status
	for _, k := range p.order {
		if k.from == from {
			out = append(out, k.to)
		}
	}
	return out
}

// Edges returns every edge in declaration order.
func (p *Policy) Edges() []Edge {
	out := make([]Edge, 0, len(p.order))
	for _, k := range p.order {
		out = append(out, p.edges[k])
	}
	return out
}
