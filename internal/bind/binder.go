// internal/bind/binder.go
//
// Two-way links between UI controls and state-store paths. The write path
// validates, debounces continuous input, and only ever commits normalized
// values; the read path echoes external changes back into controls without
// re-triggering the write path.

package bind

import (
	"fmt"
	"sync"
	"time"

	"github.com/kverel/tonewheel/internal/module"
	"github.com/kverel/tonewheel/internal/state"
	"github.com/kverel/tonewheel/internal/timer"
)

// DefaultDebounce is the quiet period applied to continuous-input fields
// before a validated value is committed.
const DefaultDebounce = 150 * time.Millisecond

// DefaultCascadeLimit bounds how deep cross-module side effects may chain.
const DefaultCascadeLimit = 5

// Control is the UI input adapter: the binder reads raw values from it,
// pushes normalized values back into it, and surfaces validation messages
// through it. What kind of visual control sits behind it is not the
// binder's business.
type Control interface {
	Raw() any
	SetDisplayed(v any)
	ShowError(msg string)
	ClearError()
}

// Effect is a cross-module side effect run after a value lands in the
// store, e.g. auto-expanding a module when its active flag turns on.
type Effect func(store *state.Store, value any)

// Logger is the subset of the session logger the binder needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Option customizes Binder construction.
type Option func(*Binder)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(b *Binder) {
		if d > 0 {
			b.debounce = d
		}
	}
}

// WithCascadeLimit overrides the side-effect cascade depth cap.
func WithCascadeLimit(n int) Option {
	return func(b *Binder) {
		if n > 0 {
			b.cascadeLimit = n
		}
	}
}

// WithLogger injects a logger for cascade-truncation diagnostics.
func WithLogger(log Logger) Option {
	return func(b *Binder) {
		b.log = log
	}
}

type bindingKey struct {
	moduleID string
	field    string
}

type binding struct {
	key          bindingKey
	path         string
	ctl          Control
	validate     func(raw any) result
	continuous   bool
	pending      timer.Timer
	pendingValue any
	invalid      bool
	applying     bool
	unsubs       []func()
}

// result mirrors field.Result without importing it into the Control
// contract.
type result struct {
	valid      bool
	normalized any
	message    string
}

// Binder maintains the bindings and the cross-module interaction table.
type Binder struct {
	mu           sync.Mutex
	store        *state.Store
	registry     *module.Registry
	sched        timer.Scheduler
	debounce     time.Duration
	cascadeLimit int
	cascadeDepth int
	log          Logger
	bindings     map[bindingKey]*binding
}

// New builds a binder over the store and registry. sched drives the
// debounce window; pass timer.Real{} in production.
func New(store *state.Store, registry *module.Registry, sched timer.Scheduler, opts ...Option) *Binder {
	b := &Binder{
		store:        store,
		registry:     registry,
		sched:        sched,
		debounce:     DefaultDebounce,
		cascadeLimit: DefaultCascadeLimit,
		bindings:     map[bindingKey]*binding{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Bind connects a control to modules.<id>.<field>. The control immediately
// displays the current store value; afterwards external store writes echo
// into the control under a re-entrancy guard, and a pending debounced commit
// is dropped if the module collapses first. Rebinding the same field
// replaces the previous binding.
func (b *Binder) Bind(moduleID, fieldName string, ctl Control) error {
	desc, ok := b.registry.ByID(moduleID)
	if !ok {
		return fmt.Errorf("bind: unknown module %s", moduleID)
	}
	spec, ok := desc.Field(fieldName)
	if !ok {
		return fmt.Errorf("bind: module %s has no field %s", moduleID, fieldName)
	}
	validate := spec.Validator()

	key := bindingKey{moduleID: moduleID, field: fieldName}
	bd := &binding{
		key:  key,
		path: module.Path(moduleID, fieldName),
		ctl:  ctl,
		validate: func(raw any) result {
			r := validate(raw)
			return result{valid: r.Valid, normalized: r.Normalized, message: r.Message}
		},
		continuous: spec.Kind.Continuous(),
	}

	b.mu.Lock()
	if prev, exists := b.bindings[key]; exists {
		b.releaseLocked(prev)
	}
	b.bindings[key] = bd
	b.mu.Unlock()

	// Read path: external store changes update the display without
	// re-entering the write path.
	unsubValue := b.store.Subscribe(bd.path, func(_ string, v any) {
		b.mu.Lock()
		bd.applying = true
		b.mu.Unlock()
		ctl.SetDisplayed(v)
		ctl.ClearError()
		b.mu.Lock()
		bd.applying = false
		bd.invalid = false
		b.mu.Unlock()
	})
	// A collapsing module makes its pending commit stale.
	unsubExpanded := b.store.Subscribe(module.Path(moduleID, "expanded"), func(_ string, v any) {
		if v == false {
			b.mu.Lock()
			b.cancelPendingLocked(bd)
			b.mu.Unlock()
		}
	})
	b.mu.Lock()
	bd.unsubs = append(bd.unsubs, unsubValue, unsubExpanded)
	b.mu.Unlock()

	if v, ok := b.store.Get(bd.path); ok {
		bd.applying = true
		ctl.SetDisplayed(v)
		bd.applying = false
	}
	return nil
}

// Unbind tears down a binding and cancels any pending commit.
func (b *Binder) Unbind(moduleID, fieldName string) {
	key := bindingKey{moduleID: moduleID, field: fieldName}
	b.mu.Lock()
	defer b.mu.Unlock()
	if bd, ok := b.bindings[key]; ok {
		b.releaseLocked(bd)
		delete(b.bindings, key)
	}
}

// HandleChange is the write path: the UI adapter calls it on every raw
// input change. Valid continuous input commits after the debounce window;
// valid discrete input commits immediately; invalid input shows its message
// at once and writes nothing.
func (b *Binder) HandleChange(moduleID, fieldName string) {
	key := bindingKey{moduleID: moduleID, field: fieldName}
	b.mu.Lock()
	bd, ok := b.bindings[key]
	if !ok || bd.applying {
		b.mu.Unlock()
		return
	}
	ctl := bd.ctl
	b.mu.Unlock()

	res := bd.validate(ctl.Raw())
	if !res.valid {
		b.mu.Lock()
		bd.invalid = true
		b.cancelPendingLocked(bd)
		b.mu.Unlock()
		ctl.ShowError(res.message)
		return
	}

	ctl.ClearError()
	b.mu.Lock()
	bd.invalid = false
	if !bd.continuous {
		b.mu.Unlock()
		b.commit(bd, res.normalized)
		return
	}
	b.cancelPendingLocked(bd)
	value := res.normalized
	bd.pendingValue = value
	bd.pending = b.sched.AfterFunc(b.debounce, func() {
		b.mu.Lock()
		bd.pending = nil
		b.mu.Unlock()
		b.commit(bd, value)
	})
	b.mu.Unlock()
}

// Flush commits a still-pending debounced value immediately. The UI calls
// it when the user confirms a field before the debounce window elapses;
// without it the confirmed value would be cancelled along with the binding.
func (b *Binder) Flush(moduleID, fieldName string) {
	key := bindingKey{moduleID: moduleID, field: fieldName}
	b.mu.Lock()
	bd, ok := b.bindings[key]
	if !ok || bd.pending == nil {
		b.mu.Unlock()
		return
	}
	b.cancelPendingLocked(bd)
	value := bd.pendingValue
	b.mu.Unlock()
	b.commit(bd, value)
}

// HandleBlur reverts a still-invalid control to the last known-valid store
// value when focus leaves it.
func (b *Binder) HandleBlur(moduleID, fieldName string) {
	key := bindingKey{moduleID: moduleID, field: fieldName}
	b.mu.Lock()
	bd, ok := b.bindings[key]
	if !ok || !bd.invalid {
		b.mu.Unlock()
		return
	}
	bd.invalid = false
	bd.applying = true
	b.mu.Unlock()

	if v, ok := b.store.Get(bd.path); ok {
		bd.ctl.SetDisplayed(v)
	}
	bd.ctl.ClearError()

	b.mu.Lock()
	bd.applying = false
	b.mu.Unlock()
}

// OnCommit registers a cross-module side effect for modules.<id>.<field>.
// The effect runs whenever a value lands at that path, whether from a
// direct commit or from another effect, and chains are truncated at the
// cascade limit instead of looping.
func (b *Binder) OnCommit(moduleID, fieldName string, fn Effect) func() {
	path := module.Path(moduleID, fieldName)
	return b.store.Subscribe(path, func(p string, v any) {
		b.mu.Lock()
		if b.cascadeDepth >= b.cascadeLimit {
			depth := b.cascadeDepth
			b.mu.Unlock()
			if b.log != nil {
				b.log.Printf("bind: cascade truncated at depth %d for %s", depth, p)
			}
			return
		}
		b.cascadeDepth++
		b.mu.Unlock()

		fn(b.store, v)

		b.mu.Lock()
		b.cascadeDepth--
		b.mu.Unlock()
	})
}

func (b *Binder) commit(bd *binding, value any) {
	b.store.Set(bd.path, value)
}

func (b *Binder) cancelPendingLocked(bd *binding) {
	if bd.pending != nil {
		bd.pending.Stop()
		bd.pending = nil
	}
}

func (b *Binder) releaseLocked(bd *binding) {
	b.cancelPendingLocked(bd)
	for _, unsub := range bd.unsubs {
		unsub()
	}
	bd.unsubs = nil
}
