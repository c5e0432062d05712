package module

import (
	"fmt"
	"sync"

	"github.com/kverel/tonewheel/internal/state"
)

// Logger is the subset of the session logger the registry needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Registry owns the ordered set of module descriptors. The order it holds is
// authoritative for both sidebar position and diagram stacking; every order
// change is committed to the state store as a single moduleOrder write so
// subscribers observe it atomically.
type Registry struct {
	mu    sync.RWMutex
	store *state.Store
	log   Logger
	byID  map[string]*Descriptor
	order []string
}

// NewRegistry returns an empty registry bound to the state store.
func NewRegistry(store *state.Store, log Logger) *Registry {
	return &Registry{
		store: store,
		log:   log,
		byID:  map[string]*Descriptor{},
	}
}

// Register appends the descriptor to the module order and seeds its state
// paths (expanded flag, field defaults). Fails with ErrDuplicateID if the id
// is taken; the registry is unchanged on any error.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	if _, exists := r.byID[d.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("module: register %s: %w", d.ID, ErrDuplicateID)
	}
	desc := d
	r.byID[d.ID] = &desc
	r.order = append(r.order, d.ID)
	order := append([]string(nil), r.order...)
	r.mu.Unlock()

	// moduleOrder first: modules.<id>.* paths may only exist for ids the
	// order already contains.
	r.store.Set(OrderPath, order)
	for _, f := range d.Fields {
		r.store.Set(Path(d.ID, f.Name), f.Default)
	}
	r.store.Set(Path(d.ID, "expanded"), d.DefaultExpanded)
	return nil
}

// ByID looks up a descriptor.
func (r *Registry) ByID(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// Order returns a copy of the current module order.
func (r *Registry) Order() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Ordered returns the descriptors in current order.
func (r *Registry) Ordered() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Reorder replaces the module order. newOrder must be a permutation of the
// registered ids; anything else fails with ErrInvalidOrder and leaves the
// previous order untouched. The accepted order is returned and written to
// the state store as one atomic moduleOrder commit.
func (r *Registry) Reorder(newOrder []string) ([]string, error) {
	r.mu.Lock()
	if err := r.checkPermutationLocked(newOrder); err != nil {
		prev := append([]string(nil), r.order...)
		r.mu.Unlock()
		if r.log != nil {
			r.log.Printf("module: reorder rejected: %v", err)
		}
		return prev, err
	}
	r.order = append(r.order[:0:0], newOrder...)
	accepted := append([]string(nil), r.order...)
	r.mu.Unlock()

	r.store.Set(OrderPath, accepted)
	return accepted, nil
}

func (r *Registry) checkPermutationLocked(candidate []string) error {
	if len(candidate) != len(r.order) {
		return fmt.Errorf("module: order has %d ids, registry has %d: %w",
			len(candidate), len(r.order), ErrInvalidOrder)
	}
	seen := make(map[string]bool, len(candidate))
	for _, id := range candidate {
		if _, exists := r.byID[id]; !exists {
			return fmt.Errorf("module: order names unknown id %s: %w", id, ErrInvalidOrder)
		}
		if seen[id] {
			return fmt.Errorf("module: order repeats id %s: %w", id, ErrInvalidOrder)
		}
		seen[id] = true
	}
	return nil
}
