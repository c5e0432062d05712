package dispatch

import "sync"

// EventType identifies a lifecycle event.
type EventType int

const (
	// EventModulesChanged fires after any committed state change relevant
	// to rendering (field commit, expand/collapse, reorder).
	EventModulesChanged EventType = iota
	// EventModuleDegraded fires when a module enters its degraded state.
	// Payload is the module id.
	EventModuleDegraded
	// EventModuleRecovered fires when a degraded module renders
	// successfully again. Payload is the module id.
	EventModuleRecovered
	// EventSystemFallback fires once when orchestration is abandoned for
	// the static layout. Payload is the triggering error.
	EventSystemFallback
)

// Event is a lifecycle notification with an optional payload.
type Event struct {
	Type    EventType
	Payload any
}

// Listener receives broadcast events.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(event Event)

func (f ListenerFunc) OnEvent(event Event) { f(event) }

// Dispatcher broadcasts lifecycle events to subscribed listeners. External
// code (status line, styling) hangs off this; the core never depends on any
// listener being present.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
}

func New() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe adds a listener.
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Unsubscribe removes a previously added listener.
func (d *Dispatcher) Unsubscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.listeners {
		if existing == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			break
		}
	}
}

// Broadcast delivers the event to every listener synchronously.
func (d *Dispatcher) Broadcast(event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	snapshot := make([]Listener, len(d.listeners))
	copy(snapshot, d.listeners)
	d.mu.RUnlock()
	for _, l := range snapshot {
		l.OnEvent(event)
	}
}
