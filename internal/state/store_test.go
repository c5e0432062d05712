package state

import (
	"reflect"
	"testing"
)

func TestSetCreatesIntermediateContainers(t *testing.T) {
	s := New()
	s.Set("modules.edo.value", 12)

	got, ok := s.Get("modules.edo.value")
	if !ok {
		t.Fatalf("expected value at modules.edo.value")
	}
	if got != 12 {
		t.Fatalf("got %v, want 12", got)
	}
	if _, ok := s.Get("modules.edo"); !ok {
		t.Fatalf("intermediate container should exist")
	}
	if _, ok := s.Get("modules.ji.value"); ok {
		t.Fatalf("unwritten path must not exist")
	}
}

func TestNotifySynchronousInSubscriptionOrder(t *testing.T) {
	s := New()
	var order []string
	s.Subscribe("modules.edo.value", func(string, any) { order = append(order, "first") })
	s.Subscribe("modules.edo.value", func(string, any) { order = append(order, "second") })

	s.Set("modules.edo.value", 19)

	want := []string{"first", "second"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("notification order %v, want %v", order, want)
	}
}

func TestAncestorSubscriptionSeesDescendantWrites(t *testing.T) {
	s := New()
	var paths []string
	s.Subscribe("modules.edo", func(path string, _ any) { paths = append(paths, path) })

	s.Set("modules.edo.expanded", true)
	s.Set("modules.ji.expanded", true)

	if len(paths) != 1 || paths[0] != "modules.edo.expanded" {
		t.Fatalf("ancestor subscription saw %v", paths)
	}
}

func TestWildcardSegment(t *testing.T) {
	s := New()
	var seen []string
	s.Subscribe("modules.*.expanded", func(path string, _ any) { seen = append(seen, path) })

	s.Set("modules.edo.expanded", false)
	s.Set("modules.edo.value", 31)
	s.Set("modules.mos.expanded", true)

	want := []string{"modules.edo.expanded", "modules.mos.expanded"}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("wildcard matches %v, want %v", seen, want)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := New()
	calls := 0
	cancel := s.Subscribe("moduleOrder", func(string, any) { calls++ })

	s.Set("moduleOrder", []string{"a"})
	cancel()
	s.Set("moduleOrder", []string{"b"})

	if calls != 1 {
		t.Fatalf("got %d calls after unsubscribe, want 1", calls)
	}
}

func TestReentrantSetFromCallback(t *testing.T) {
	s := New()
	s.Subscribe("modules.ji.active", func(_ string, v any) {
		if v == true {
			s.Set("modules.ji.expanded", true)
		}
	})

	s.Set("modules.ji.active", true)

	if got, _ := s.Get("modules.ji.expanded"); got != true {
		t.Fatalf("re-entrant write did not land, got %v", got)
	}
}

func TestSubscriberObservesSameTurnWrite(t *testing.T) {
	s := New()
	var observed any
	s.Subscribe("modules.edo.value", func(string, any) {
		observed, _ = s.Get("modules.edo.value")
	})

	s.Set("modules.edo.value", 24)

	if observed != 24 {
		t.Fatalf("subscriber read %v during notification, want 24", observed)
	}
}

func TestDeleteRemovesSubtree(t *testing.T) {
	s := New()
	s.Set("modules.edo.value", 12)
	s.Delete("modules.edo")
	if _, ok := s.Get("modules.edo.value"); ok {
		t.Fatalf("subtree should be gone")
	}
}
