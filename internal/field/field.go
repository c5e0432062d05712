package field

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tells the UI what sort of control backs a field and tells the binder
// whether commits are debounced (continuous) or immediate (discrete).
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindChoice
)

// Continuous reports whether rapid repeated input is expected for this kind
// of control, in which case commits go through the debounce window.
func (k Kind) Continuous() bool {
	return k == KindInt || k == KindFloat
}

// Result is the outcome of validating one raw input value. A validator
// accepts a value unchanged, corrects it (still Valid, Normalized differs
// from the input), or rejects it with a message and a suggested fallback.
type Result struct {
	Valid      bool
	Normalized any
	Message    string
	Fallback   any
}

// Func validates a raw input value.
type Func func(raw any) Result

// Spec describes one configuration field of a module.
type Spec struct {
	Name     string
	Label    string
	Kind     Kind
	Default  any
	Choices  []string
	Min      float64
	Max      float64
	Step     float64
	Validate Func
}

// Validator returns the spec's validator, deriving one from the kind and
// range when none was supplied.
func (s Spec) Validator() Func {
	if s.Validate != nil {
		return s.Validate
	}
	switch s.Kind {
	case KindInt:
		return IntRange(int(s.Min), int(s.Max))
	case KindFloat:
		return FloatRange(s.Min, s.Max)
	case KindBool:
		return Bool()
	case KindChoice:
		return OneOf(s.Choices...)
	}
	return func(raw any) Result { return Result{Valid: true, Normalized: raw} }
}

// IntRange parses and clamps integers into [min, max]. Unparseable input is
// rejected with min as the suggested fallback.
func IntRange(min, max int) Func {
	return func(raw any) Result {
		n, err := toInt(raw)
		if err != nil {
			return Result{
				Message:  fmt.Sprintf("enter a whole number between %d and %d", min, max),
				Fallback: min,
			}
		}
		if n < min {
			n = min
		}
		if n > max {
			n = max
		}
		return Result{Valid: true, Normalized: n}
	}
}

// FloatRange parses and clamps floats into [min, max].
func FloatRange(min, max float64) Func {
	return func(raw any) Result {
		f, err := toFloat(raw)
		if err != nil {
			return Result{
				Message:  fmt.Sprintf("enter a number between %g and %g", min, max),
				Fallback: min,
			}
		}
		if f < min {
			f = min
		}
		if f > max {
			f = max
		}
		return Result{Valid: true, Normalized: f}
	}
}

// Bool accepts bools and the usual textual spellings.
func Bool() Func {
	return func(raw any) Result {
		switch v := raw.(type) {
		case bool:
			return Result{Valid: true, Normalized: v}
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err == nil {
				return Result{Valid: true, Normalized: b}
			}
		}
		return Result{Message: "enter true or false", Fallback: false}
	}
}

// OneOf accepts only the listed choices. The first choice is the fallback.
func OneOf(choices ...string) Func {
	return func(raw any) Result {
		s, ok := raw.(string)
		if ok {
			s = strings.TrimSpace(s)
			for _, c := range choices {
				if s == c {
					return Result{Valid: true, Normalized: c}
				}
			}
		}
		var fallback any
		if len(choices) > 0 {
			fallback = choices[0]
		}
		return Result{
			Message:  fmt.Sprintf("must be one of: %s", strings.Join(choices, ", ")),
			Fallback: fallback,
		}
	}
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
		return 0, fmt.Errorf("field: %v is not an integer", v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("field: parse %q: %w", v, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("field: cannot read %T as int", raw)
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("field: parse %q: %w", v, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("field: cannot read %T as float", raw)
}
