// internal/diagram/diagram.go
//
// The built-in diagram render routines: equal division, just intonation,
// and moment of symmetry, each drawing pitch-class positions onto a circle.
// The orchestration core treats these as opaque external collaborators; the
// formulas stay deliberately simple.

package diagram

import (
	"fmt"
	"math"

	"github.com/kverel/tonewheel/internal/canvas"
	"github.com/kverel/tonewheel/internal/module"
)

// Kinds of built-in diagrams, referenced from the catalog.
const (
	KindEDO = "edo"
	KindJI  = "ji"
	KindMOS = "mos"
)

// Routine returns the built-in render routine for kind, drawing with the
// given accent color.
func Routine(kind, color string) (module.RenderRoutine, error) {
	switch kind {
	case KindEDO:
		return EDO(color), nil
	case KindJI:
		return JI(color), nil
	case KindMOS:
		return MOS(color), nil
	}
	return nil, fmt.Errorf("diagram: unknown kind %q", kind)
}

// EDO plots n equal divisions of the octave, with the chain generated by
// the "generator" step count emphasized.
func EDO(color string) module.RenderRoutine {
	return func(dims module.Dimensions, values map[string]any) (module.Layer, error) {
		n := intVal(values, "divisions", 12)
		if n < 1 {
			return nil, fmt.Errorf("diagram: edo needs at least one division, got %d", n)
		}
		gen := intVal(values, "generator", 7)

		b := ring(dims, color)
		numbers := strVal(values, "style", "dots") == "numbers"
		for i := 0; i < n; i++ {
			ch := '·'
			if numbers {
				ch = rune('0' + i%10)
			}
			plot(b, dims, 1200*float64(i)/float64(n), ch, color)
		}
		if gen > 0 {
			for i, step := 0, 0; i < n; i, step = i+1, (step+gen)%n {
				plot(b, dims, 1200*float64(step)/float64(n), '●', color)
			}
		}
		b.Text(0, 0, fmt.Sprintf("%d-edo", n), color)
		return b, nil
	}
}

// JI plots the odd-limit tonality diamond on the octave circle.
func JI(color string) module.RenderRoutine {
	return func(dims module.Dimensions, values map[string]any) (module.Layer, error) {
		limit := intVal(values, "limit", 5)
		if limit < 3 || limit%2 == 0 {
			return nil, fmt.Errorf("diagram: ji odd limit must be an odd number >= 3, got %d", limit)
		}

		b := ring(dims, color)
		for num := 1; num <= limit; num += 2 {
			for den := 1; den <= limit; den += 2 {
				plot(b, dims, centsOf(num, den), '◆', color)
			}
		}
		b.Text(0, 0, fmt.Sprintf("%d-limit", limit), color)
		return b, nil
	}
}

// MOS plots a generator chain: notes-many stackings of the generator,
// reduced to the octave.
func MOS(color string) module.RenderRoutine {
	return func(dims module.Dimensions, values map[string]any) (module.Layer, error) {
		gen := floatVal(values, "generator", 701.955)
		notes := intVal(values, "notes", 7)
		if notes < 1 {
			return nil, fmt.Errorf("diagram: mos needs at least one note, got %d", notes)
		}

		b := ring(dims, color)
		for k := 0; k < notes; k++ {
			cents := math.Mod(float64(k)*gen, 1200)
			if cents < 0 {
				cents += 1200
			}
			plot(b, dims, cents, '●', color)
		}
		b.Text(0, 0, fmt.Sprintf("mos %.1f¢ × %d", gen, notes), color)
		return b, nil
	}
}

// ring draws the faint octave circle everything else plots onto.
func ring(dims module.Dimensions, color string) *canvas.Buffer {
	b := canvas.NewBuffer(dims.Width, dims.Height)
	for i := 0; i < 96; i++ {
		plot(b, dims, 1200*float64(i)/96, '.', "")
	}
	return b
}

// plot places one rune at the circle position for cents (0 at twelve
// o'clock, clockwise). Terminal cells are roughly twice as tall as wide, so
// the x radius is doubled.
func plot(b *canvas.Buffer, dims module.Dimensions, cents float64, ch rune, color string) {
	ry := float64(dims.Height)/2 - 1
	rx := float64(dims.Width)/2 - 1
	if ry*2 < rx {
		rx = ry * 2
	}
	if rx < 1 || ry < 1 {
		return
	}
	theta := cents/1200*2*math.Pi - math.Pi/2
	x := float64(dims.Width)/2 + rx*math.Cos(theta)
	y := float64(dims.Height)/2 + ry*math.Sin(theta)
	b.Set(int(math.Round(x)), int(math.Round(y)), ch, color)
}

func centsOf(num, den int) float64 {
	ratio := float64(num) / float64(den)
	for ratio >= 2 {
		ratio /= 2
	}
	for ratio < 1 {
		ratio *= 2
	}
	return 1200 * math.Log2(ratio)
}

func intVal(values map[string]any, key string, def int) int {
	switch v := values[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func strVal(values map[string]any, key string, def string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return def
}

func floatVal(values map[string]any, key string, def float64) float64 {
	switch v := values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}
