package policy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"marketplace-orders/internal/domain"
)

type fileFormat struct {
	Transitions []struct {
		From  string   `yaml:"from"`
		To    string   `yaml:"to"`
		Roles []string `yaml:"roles"`
	} `yaml:"transitions"`
}

// Load reads role overrides from YAML on top of the default policy:
//
//	transitions:
//	  - from: RefundRequested
//	    to: Refunded
//	    roles: [admin]
//
// Only edges of the default state machine may be listed.
func Load(r io.Reader) (*Policy, error) {
	var f fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	base := Default()
	edges := base.Edges()
	index := make(map[edgeKey]int, len(edges))
	for i, e := range edges {
		index[edgeKey{e.From, e.To}] = i
	}

	for _, t := range f.Transitions {
		from, ok := domain.ParseStatus(t.From)
		if !ok {
			return nil, fmt.Errorf("policy: unknown status %q", t.From)
		}
		to, ok := domain.ParseStatus(t.To)
		if !ok {
			return nil, fmt.Errorf("policy: unknown status %q", t.To)
		}
		i, ok := index[edgeKey{from, to}]
		if !ok {
			return nil, fmt.Errorf("policy: %s -> %s is not a lifecycle edge", from, to)
		}
		roles := make([]domain.Role, 0, len(t.Roles))
		for _, raw := range t.Roles {
			role, ok := domain.ParseRole(raw)
			if !ok {
				return nil, fmt.Errorf("policy: unknown role %q", raw)
			}
			roles = append(roles, role)
		}
		edges[i].Roles = roles
	}
	return newPolicy(edges), nil
}

// LoadFile is Load on a file path. An empty path yields the default policy.
func LoadFile(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return Load(f)
}
