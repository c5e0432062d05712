package health

import (
	"errors"
	"testing"

	"github.com/kverel/tonewheel/internal/dispatch"
)

func collectEvents(d *dispatch.Dispatcher) *[]dispatch.Event {
	var events []dispatch.Event
	d.Subscribe(dispatch.ListenerFunc(func(e dispatch.Event) {
		events = append(events, e)
	}))
	return &events
}

func TestDegradeAndRecoverCycle(t *testing.T) {
	d := dispatch.New()
	events := collectEvents(d)
	tr := NewTracker(d, nil)

	failure := errors.New("render blew up")
	tr.MarkDegraded("ji", failure)
	tr.MarkDegraded("ji", failure) // no second announcement

	if err, ok := tr.Degraded("ji"); !ok || err != failure {
		t.Fatalf("Degraded(ji) = %v, %v", err, ok)
	}
	if _, ok := tr.Degraded("edo"); ok {
		t.Fatalf("other modules must stay healthy")
	}

	tr.MarkHealthy("ji")
	if _, ok := tr.Degraded("ji"); ok {
		t.Fatalf("module must recover")
	}
	tr.MarkHealthy("ji") // no-op, no extra event

	if len(*events) != 2 {
		t.Fatalf("got %d events, want degraded+recovered: %v", len(*events), *events)
	}
	if (*events)[0].Type != dispatch.EventModuleDegraded || (*events)[0].Payload != "ji" {
		t.Fatalf("first event %+v", (*events)[0])
	}
	if (*events)[1].Type != dispatch.EventModuleRecovered {
		t.Fatalf("second event %+v", (*events)[1])
	}
}

func TestFallbackIsTerminalAndAnnouncedOnce(t *testing.T) {
	d := dispatch.New()
	events := collectEvents(d)
	tr := NewTracker(d, nil)

	cause := errors.New("registry construction failed")
	tr.EnterFallback(cause)
	tr.EnterFallback(errors.New("later"))

	if !tr.InFallback() {
		t.Fatalf("tracker must be in fallback")
	}
	if tr.FallbackCause() != cause {
		t.Fatalf("first cause must win, got %v", tr.FallbackCause())
	}
	if len(*events) != 1 || (*events)[0].Type != dispatch.EventSystemFallback {
		t.Fatalf("events %v", *events)
	}
}
