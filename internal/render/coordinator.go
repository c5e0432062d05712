// internal/render/coordinator.go
//
// Turns state changes into render passes. The coordinator watches the module
// order, expand/collapse flags, and field values, coalesces bursts of
// changes behind a frame timer, and rebuilds the visual stack so that
// modules later in the order sit on top. A failing render routine degrades
// only its own module.

package render

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kverel/tonewheel/internal/dispatch"
	"github.com/kverel/tonewheel/internal/health"
	"github.com/kverel/tonewheel/internal/module"
	"github.com/kverel/tonewheel/internal/state"
	"github.com/kverel/tonewheel/internal/timer"
)

// DefaultFrameInterval is the coalescing window for full render passes,
// roughly one animation frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Stacked is one rendered layer with its stacking position. Higher Z draws
// on top.
type Stacked struct {
	ID    string
	Z     int
	Layer module.Layer
}

// Logger is the subset of the session logger the coordinator needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Option customizes Coordinator construction.
type Option func(*Coordinator)

// WithFrameInterval overrides the coalescing window.
func WithFrameInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.frame = d
		}
	}
}

// WithLogger injects a logger for per-module render failures.
func WithLogger(log Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// Coordinator owns the layer stack. All mutation happens through render
// passes triggered by state-store subscriptions.
type Coordinator struct {
	mu       sync.Mutex
	store    *state.Store
	registry *module.Registry
	health   *health.Tracker
	events   *dispatch.Dispatcher
	sched    timer.Scheduler
	log      Logger
	frame    time.Duration

	dims     module.Dimensions
	dirty    map[string]bool
	allDirty bool
	pending  timer.Timer
	cache    map[string]module.Layer
	stack    []Stacked
	unsubs   []func()
}

// New wires the coordinator into the store. It starts with everything dirty
// so the first Flush renders the initial stack.
func New(store *state.Store, registry *module.Registry, tracker *health.Tracker, events *dispatch.Dispatcher, sched timer.Scheduler, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		registry: registry,
		health:   tracker,
		events:   events,
		sched:    sched,
		frame:    DefaultFrameInterval,
		dirty:    map[string]bool{},
		allDirty: true,
		cache:    map[string]module.Layer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.unsubs = append(c.unsubs,
		store.Subscribe(module.OrderPath, func(string, any) {
			// Order changes are user-initiated and rare; a full
			// reflow is fine.
			c.mu.Lock()
			c.allDirty = true
			c.scheduleLocked()
			c.mu.Unlock()
		}),
		store.Subscribe("modules", func(path string, _ any) {
			segs := strings.Split(path, ".")
			if len(segs) < 2 {
				return
			}
			c.mu.Lock()
			c.dirty[segs[1]] = true
			c.scheduleLocked()
			c.mu.Unlock()
		}),
	)
	return c
}

// Close drops the coordinator's subscriptions and cancels a pending pass.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

// SetDimensions updates the shared layout geometry; every layer depends on
// it, so everything goes dirty.
func (c *Coordinator) SetDimensions(dims module.Dimensions) {
	c.mu.Lock()
	if dims != c.dims {
		c.dims = dims
		c.allDirty = true
		c.scheduleLocked()
	}
	c.mu.Unlock()
}

// Stack returns the current layer stack, bottom first.
func (c *Coordinator) Stack() []Stacked {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Stacked(nil), c.stack...)
}

// Flush runs a render pass now if anything is dirty, cancelling the frame
// timer. The TUI calls this right before drawing; tests call it instead of
// waiting out the timer.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	if !c.allDirty && len(c.dirty) == 0 {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.pass()
}

func (c *Coordinator) scheduleLocked() {
	if c.pending != nil {
		return
	}
	c.pending = c.sched.AfterFunc(c.frame, func() {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		c.pass()
	})
}

// pass rebuilds the stack: expanded modules in module order, each layer's
// stacking position equal to its index among expanded modules. Clean
// modules reuse their cached layer; dirty ones re-invoke their routine
// through the error boundary.
func (c *Coordinator) pass() {
	c.mu.Lock()
	dims := c.dims
	all := c.allDirty
	dirty := c.dirty
	c.allDirty = false
	c.dirty = map[string]bool{}
	c.mu.Unlock()

	ordered := c.registry.Ordered()
	next := make([]Stacked, 0, len(ordered))
	type recovery struct {
		id  string
		err error
	}
	var degraded []recovery
	var recovered []string

	z := 0
	for _, desc := range ordered {
		if !c.expanded(desc.ID) {
			c.mu.Lock()
			delete(c.cache, desc.ID)
			c.mu.Unlock()
			continue
		}
		pos := z
		z++

		c.mu.Lock()
		cached, hasCached := c.cache[desc.ID]
		c.mu.Unlock()
		if !all && !dirty[desc.ID] && hasCached {
			next = append(next, Stacked{ID: desc.ID, Z: pos, Layer: cached})
			continue
		}

		layer, err := c.invoke(desc, dims)
		if err != nil {
			if c.log != nil {
				c.log.Printf("render: %v", err)
			}
			degraded = append(degraded, recovery{id: desc.ID, err: err})
			c.mu.Lock()
			delete(c.cache, desc.ID)
			c.mu.Unlock()
			continue
		}
		if _, was := c.health.Degraded(desc.ID); was {
			recovered = append(recovered, desc.ID)
		}
		c.mu.Lock()
		c.cache[desc.ID] = layer
		c.mu.Unlock()
		next = append(next, Stacked{ID: desc.ID, Z: pos, Layer: layer})
	}

	c.mu.Lock()
	c.stack = next
	c.mu.Unlock()

	// Health transitions and the changed event go out after the stack is
	// in place, so listeners reading Stack() see the new pass.
	for _, d := range degraded {
		c.health.MarkDegraded(d.id, d.err)
	}
	for _, id := range recovered {
		c.health.MarkHealthy(id)
	}
	c.events.Broadcast(dispatch.Event{Type: dispatch.EventModulesChanged})
}

// invoke runs one module's render routine behind the error boundary: a
// panic comes back as an error and never escapes the pass.
func (c *Coordinator) invoke(desc *module.Descriptor, dims module.Dimensions) (layer module.Layer, err error) {
	defer func() {
		if r := recover(); r != nil {
			layer = nil
			err = fmt.Errorf("render: module %s panicked: %v", desc.ID, r)
		}
	}()
	values := c.fieldValues(desc)
	layer, err = desc.Render(dims, values)
	if err != nil {
		return nil, fmt.Errorf("render: module %s: %w", desc.ID, err)
	}
	return layer, nil
}

func (c *Coordinator) fieldValues(desc *module.Descriptor) map[string]any {
	values := make(map[string]any, len(desc.Fields))
	for _, f := range desc.Fields {
		if v, ok := c.store.Get(module.Path(desc.ID, f.Name)); ok {
			values[f.Name] = v
		} else {
			values[f.Name] = f.Default
		}
	}
	return values
}

func (c *Coordinator) expanded(id string) bool {
	v, ok := c.store.Get(module.Path(id, "expanded"))
	return ok && v == true
}
