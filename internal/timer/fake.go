package timer

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced scheduler for tests. Callbacks run on the
// goroutine that calls Advance, in due order.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*fakeTimer
}

type fakeTimer struct {
	fake    *Fake
	due     time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fake: f, due: f.now + d, fn: fn}
	f.pending = append(f.pending, t)
	return t
}

// Advance moves the fake clock forward and fires every timer that comes due,
// including timers scheduled by the callbacks themselves.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	for {
		var next *fakeTimer
		for _, t := range f.pending {
			if t.stopped || t.fired || t.due > target {
				continue
			}
			if next == nil || t.due < next.due {
				next = t
			}
		}
		if next == nil {
			break
		}
		f.now = next.due
		next.fired = true
		fn := next.fn
		f.mu.Unlock()
		fn()
		f.mu.Lock()
	}
	f.now = target
	f.compact()
	f.mu.Unlock()
}

// Pending reports how many timers are armed.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (f *Fake) compact() {
	live := f.pending[:0]
	for _, t := range f.pending {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].due < live[j].due })
	f.pending = live
}

func (t *fakeTimer) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
