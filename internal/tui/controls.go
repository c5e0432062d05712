package tui

import (
	"fmt"
	"strconv"
	"sync"
)

// editControl adapts the field being edited to the binder's control
// contract. The binder's echo path can run on a debounce timer goroutine,
// so the control never touches the textinput directly: it buffers the
// displayed value and error under a lock, and the model applies the buffer
// to the textinput from the event loop.
type editControl struct {
	mu      sync.Mutex
	raw     string
	display string
	dirty   bool
	errMsg  string
	hasErr  bool
}

func (c *editControl) Raw() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw
}

func (c *editControl) SetDisplayed(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display = displayValue(v)
	c.raw = c.display
	c.dirty = true
}

func (c *editControl) ShowError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = msg
	c.hasErr = true
}

func (c *editControl) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
	c.hasErr = false
}

// setRaw mirrors the textinput's current text into the control before the
// binder reads it.
func (c *editControl) setRaw(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = s
}

// takeDisplay hands out a buffered echo exactly once.
func (c *editControl) takeDisplay() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return "", false
	}
	c.dirty = false
	return c.display, true
}

func (c *editControl) errorState() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg, c.hasErr
}

// toggleControl is an ephemeral control for discrete fields flipped in
// place (bools and choices): the TUI sets raw and lets the binder commit.
type toggleControl struct {
	raw    any
	errMsg string
}

func (c *toggleControl) Raw() any { return c.raw }

func (c *toggleControl) SetDisplayed(v any) {}

func (c *toggleControl) ShowError(msg string) { c.errMsg = msg }

func (c *toggleControl) ClearError() { c.errMsg = "" }

func displayValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "on"
		}
		return "off"
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
