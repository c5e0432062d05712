// internal/state/store.go
//
// The process-wide state tree. Every piece of mutable session state (module
// order, expand/collapse flags, field values) lives here under a dotted
// path, and every other component observes it through Subscribe. Writes
// notify synchronously, so a subscriber always sees a write made earlier in
// the same turn.

package state

import (
	"strings"
	"sync"
)

// Callback receives the written path and the new value at that path.
type Callback func(path string, value any)

type subscription struct {
	pattern []string
	fn      Callback
	dead    bool
}

// Store is a tree of map[string]any nodes addressed by dotted paths.
//
// All production traffic arrives on one goroutine (the bubbletea update
// loop); the mutex only covers stray timer callbacks.
type Store struct {
	mu   sync.Mutex
	root map[string]any
	subs []*subscription
}

func New() *Store {
	return &Store{root: map[string]any{}}
}

// Get returns the value at path and whether it exists.
func (s *Store) Get(path string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	segs := split(path)
	node := any(s.root)
	for _, seg := range segs {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// Set overwrites the value at path, creating intermediate containers as
// needed, then synchronously notifies every subscriber whose pattern covers
// the path, in subscription order. Structural writes never fail; validation
// is the caller's job.
func (s *Store) Set(path string, value any) {
	segs := split(path)
	if len(segs) == 0 {
		return
	}
	s.mu.Lock()
	m := s.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := m[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[seg] = child
		}
		m = child
	}
	m[segs[len(segs)-1]] = value

	// Snapshot matching subscribers so callbacks can re-enter Set or
	// Subscribe without deadlocking.
	var matched []*subscription
	for _, sub := range s.subs {
		if !sub.dead && covers(sub.pattern, segs) {
			matched = append(matched, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range matched {
		if !sub.dead {
			sub.fn(path, value)
		}
	}
}

// Delete removes the value (or subtree) at path. No notification is sent;
// deletion only happens during teardown of paths the registry owns.
func (s *Store) Delete(path string) {
	segs := split(path)
	if len(segs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := m[seg].(map[string]any)
		if !ok {
			return
		}
		m = child
	}
	delete(m, segs[len(segs)-1])
}

// Subscribe registers fn for every write whose path equals pattern or sits
// underneath it. A pattern segment of "*" matches any single segment, so
// "modules.*.expanded" observes the expanded flag of every module. The
// returned handle removes the subscription.
func (s *Store) Subscribe(pattern string, fn Callback) (unsubscribe func()) {
	sub := &subscription{pattern: split(pattern), fn: fn}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		sub.dead = true
		for i, existing := range s.subs {
			if existing == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}
}

// covers reports whether a subscription pattern matches a written path: the
// pattern must be a per-segment prefix of the path, "*" matching any one
// segment. This makes a subscription fire for its exact path and for
// anything written beneath it.
func covers(pattern, path []string) bool {
	if len(pattern) > len(path) {
		return false
	}
	for i, seg := range pattern {
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return true
}

func split(path string) []string {
	path = strings.Trim(path, ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
