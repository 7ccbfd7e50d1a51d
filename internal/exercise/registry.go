package exercise

import (
	"fmt"
	"sort"

	"github.com/claude/repcoach/internal/engine"
)

// Registry is the immutable exercise catalog, assembled explicitly at
// startup.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// NewRegistry validates and registers the given definitions. Any invalid
// definition fails the whole load.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("registering exercise: %w", err)
		}
		if _, dup := r.defs[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate exercise id %q", engine.ErrConfig, d.ID)
		}
		r.defs[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	sort.Strings(r.order)
	return r, nil
}

// Get looks up a definition by id.
func (r *Registry) Get(id string) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// List returns all definitions in id order.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}
