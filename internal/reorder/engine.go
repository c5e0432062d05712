// internal/reorder/engine.go
//
// Translates a continuous drag gesture along the sidebar's ordering axis
// into a discrete provisional module order. The engine never writes state;
// Registry.Reorder is the single commit point, called by whoever owns the
// gesture when it ends.

package reorder

import "fmt"

// Bounds is one module's extent along the ordering axis, in the same
// coordinate space as the pointer positions fed to Move. A pointer at p is
// inside when Top <= p <= Bottom.
type Bounds struct {
	ID     string
	Top    int
	Bottom int
}

// Engine holds the ephemeral drop-target state of one active gesture.
type Engine struct {
	active      bool
	id          string
	original    []string
	provisional []string
	lastInsert  int
}

func NewEngine() *Engine {
	return &Engine{lastInsert: -1}
}

// Start begins a gesture dragging id out of order. Fails if id is not part
// of the order or a gesture is already active.
func (e *Engine) Start(id string, order []string) error {
	if e.active {
		return fmt.Errorf("reorder: gesture already active for %s", e.id)
	}
	found := false
	for _, existing := range order {
		if existing == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("reorder: %s is not in the current order", id)
	}
	e.active = true
	e.id = id
	e.original = append([]string(nil), order...)
	e.provisional = append([]string(nil), order...)
	e.lastInsert = -1
	return nil
}

// Dragging reports the id being dragged, if a gesture is active.
func (e *Engine) Dragging() (string, bool) {
	return e.id, e.active
}

// Move feeds a pointer position and the current visual bounds of every
// module. It returns the provisional order and whether it changed. The
// midpoint rule decides the insertion side: before the hovered module's
// midpoint inserts in front of it, after inserts behind it, which keeps the
// insertion point stable while the pointer sits near a boundary. A pointer
// over the dragged module itself, or outside the list, changes nothing.
func (e *Engine) Move(pos int, bounds []Bounds) ([]string, bool) {
	if !e.active {
		return nil, false
	}
	target, ok := e.hovered(pos, bounds)
	if !ok {
		return e.snapshot(), false
	}

	// Index of the hovered module with the dragged one removed; that is
	// the insertion index for "before", one past it for "after".
	stripped := make([]string, 0, len(e.provisional))
	for _, id := range e.provisional {
		if id != e.id {
			stripped = append(stripped, id)
		}
	}
	insert := -1
	for i, id := range stripped {
		if id == target.ID {
			insert = i
			break
		}
	}
	if insert < 0 {
		return e.snapshot(), false
	}
	mid := (target.Top + target.Bottom) / 2
	if pos > mid {
		insert++
	}
	if insert == e.lastInsert {
		return e.snapshot(), false
	}
	e.lastInsert = insert

	next := make([]string, 0, len(stripped)+1)
	next = append(next, stripped[:insert]...)
	next = append(next, e.id)
	next = append(next, stripped[insert:]...)
	e.provisional = next
	return e.snapshot(), true
}

// End finishes the gesture and returns the provisional order for commit.
func (e *Engine) End() []string {
	final := e.snapshot()
	e.reset()
	return final
}

// Cancel discards the provisional order and returns the order that was in
// effect when the gesture started.
func (e *Engine) Cancel() []string {
	original := append([]string(nil), e.original...)
	e.reset()
	return original
}

func (e *Engine) hovered(pos int, bounds []Bounds) (Bounds, bool) {
	for _, b := range bounds {
		if b.ID == e.id {
			continue
		}
		if pos >= b.Top && pos <= b.Bottom {
			return b, true
		}
	}
	return Bounds{}, false
}

func (e *Engine) snapshot() []string {
	return append([]string(nil), e.provisional...)
}

func (e *Engine) reset() {
	e.active = false
	e.id = ""
	e.original = nil
	e.provisional = nil
	e.lastInsert = -1
}

// MoveUp swaps id with its predecessor. This is the discrete fallback path
// for environments without usable drag gestures; it bypasses the geometry
// entirely and the caller commits the result immediately.
func MoveUp(order []string, id string) ([]string, bool) {
	for i, existing := range order {
		if existing == id {
			if i == 0 {
				return append([]string(nil), order...), false
			}
			next := append([]string(nil), order...)
			next[i-1], next[i] = next[i], next[i-1]
			return next, true
		}
	}
	return append([]string(nil), order...), false
}

// MoveDown swaps id with its successor.
func MoveDown(order []string, id string) ([]string, bool) {
	for i, existing := range order {
		if existing == id {
			if i == len(order)-1 {
				return append([]string(nil), order...), false
			}
			next := append([]string(nil), order...)
			next[i], next[i+1] = next[i+1], next[i]
			return next, true
		}
	}
	return append([]string(nil), order...), false
}
