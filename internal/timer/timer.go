package timer

import "time"

// Timer is a scheduled one-shot callback. Stop reports whether the callback
// was cancelled before it fired.
type Timer interface {
	Stop() bool
}

// Scheduler hands out one-shot timers. The debounce window in the binder and
// the frame coalescing in the rendering coordinator both go through this seam
// so tests can drive time by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Real schedules on the wall clock.
type Real struct{}

func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
