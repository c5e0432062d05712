package health

import (
	"sync"

	"github.com/kverel/tonewheel/internal/dispatch"
)

// Logger is the subset of the session logger the tracker needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Tracker runs the failure state machine: per module Healthy -> Degraded ->
// Healthy, and for the whole subsystem Healthy -> Fallback. Fallback is
// terminal for the session.
type Tracker struct {
	mu       sync.Mutex
	events   *dispatch.Dispatcher
	log      Logger
	degraded map[string]error
	fallback error
	inFall   bool
}

func NewTracker(events *dispatch.Dispatcher, log Logger) *Tracker {
	return &Tracker{
		events:   events,
		log:      log,
		degraded: map[string]error{},
	}
}

// MarkDegraded moves one module to Degraded. Only that module is affected;
// repeated failures update the recorded error without re-announcing.
func (t *Tracker) MarkDegraded(id string, err error) {
	t.mu.Lock()
	_, already := t.degraded[id]
	t.degraded[id] = err
	t.mu.Unlock()

	if already {
		return
	}
	if t.log != nil {
		t.log.Printf("health: module %s degraded: %v", id, err)
	}
	t.events.Broadcast(dispatch.Event{Type: dispatch.EventModuleDegraded, Payload: id})
}

// MarkHealthy recovers a module after its next successful render. A module
// that was not degraded stays untouched.
func (t *Tracker) MarkHealthy(id string) {
	t.mu.Lock()
	_, was := t.degraded[id]
	delete(t.degraded, id)
	t.mu.Unlock()

	if !was {
		return
	}
	if t.log != nil {
		t.log.Printf("health: module %s recovered", id)
	}
	t.events.Broadcast(dispatch.Event{Type: dispatch.EventModuleRecovered, Payload: id})
}

// Degraded returns the recorded failure for id, if any.
func (t *Tracker) Degraded(id string) (error, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	err, ok := t.degraded[id]
	return err, ok
}

// DegradedCount reports how many modules are currently degraded.
func (t *Tracker) DegradedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.degraded)
}

// EnterFallback abandons orchestration for the rest of the session. The
// first call wins; later calls are ignored.
func (t *Tracker) EnterFallback(err error) {
	t.mu.Lock()
	if t.inFall {
		t.mu.Unlock()
		return
	}
	t.inFall = true
	t.fallback = err
	t.mu.Unlock()

	if t.log != nil {
		t.log.Printf("health: system fallback: %v", err)
	}
	t.events.Broadcast(dispatch.Event{Type: dispatch.EventSystemFallback, Payload: err})
}

// InFallback reports whether orchestration has been abandoned.
func (t *Tracker) InFallback() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFall
}

// FallbackCause returns the error that triggered fallback.
func (t *Tracker) FallbackCause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fallback
}
