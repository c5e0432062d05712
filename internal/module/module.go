package module

import (
	"errors"
	"fmt"

	"github.com/kverel/tonewheel/internal/field"
)

var (
	// ErrDuplicateID reports a second registration under an existing id.
	ErrDuplicateID = errors.New("module: duplicate id")
	// ErrInvalidOrder reports a reorder sequence that is not a permutation
	// of the registered ids.
	ErrInvalidOrder = errors.New("module: invalid order")
)

// Dimensions is the shared layout geometry handed to every render routine.
type Dimensions struct {
	Width  int
	Height int
}

// Layer is the renderable output of one module's render routine. The core
// only stacks layers; it never looks inside one.
type Layer any

// RenderRoutine produces a module's layer from the shared dimensions and the
// module's current field values.
type RenderRoutine func(dims Dimensions, values map[string]any) (Layer, error)

// Descriptor describes one configuration panel and its diagram layer.
type Descriptor struct {
	// ID is stable, unique, and immutable after registration.
	ID string
	// Title is the display label of the panel.
	Title string
	// Color is the accent for panel chrome and the diagram; opaque here.
	Color string
	// Render is supplied externally per module.
	Render RenderRoutine
	// Fields declares the panel's configuration fields.
	Fields []field.Spec
	// DefaultExpanded controls the initial expand/collapse state.
	DefaultExpanded bool
}

// Validate ensures the descriptor is well-formed before registration.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("module: id is required")
	}
	if d.Title == "" {
		return fmt.Errorf("module: title is required for %s", d.ID)
	}
	if d.Render == nil {
		return fmt.Errorf("module: render routine is required for %s", d.ID)
	}
	seen := map[string]bool{}
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("module: %s has a field without a name", d.ID)
		}
		if seen[f.Name] {
			return fmt.Errorf("module: %s declares field %s twice", d.ID, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Field returns the named field spec.
func (d Descriptor) Field(name string) (field.Spec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return field.Spec{}, false
}

// Path returns the state-store path of one of this module's keys, e.g.
// Path("edo", "expanded") -> "modules.edo.expanded".
func Path(id string, key string) string {
	return "modules." + id + "." + key
}

// OrderPath is the state-store path holding the authoritative module order.
const OrderPath = "moduleOrder"
