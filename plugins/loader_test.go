package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kverel/tonewheel/internal/canvas"
	"github.com/kverel/tonewheel/internal/module"
)

const spiralPlugin = `package main

func DiagramDefinitions() ([]map[string]any, error) {
	return []map[string]any{
		{
			"id":    "spiral",
			"title": "Spiral",
			"kind":  "custom",
			"color": "6",
			"fields": []any{
				map[string]any{
					"name":    "turns",
					"kind":    "int",
					"min":     1,
					"max":     9,
					"default": 3,
				},
			},
		},
	}, nil
}

func Render(width, height int, values map[string]float64) [][]rune {
	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = make([]rune, width)
	}
	turns := int(values["turns"])
	for i := 0; i < turns && i < width && i < height; i++ {
		grid[i][i] = '*'
	}
	return grid
}
`

const builtinKindPlugin = `package main

func DiagramDefinitions() ([]map[string]any, error) {
	return []map[string]any{
		{
			"id":    "pythagorean",
			"title": "Pythagorean",
			"kind":  "mos",
			"color": "1",
		},
	}, nil
}
`

func writePlugin(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
}

func TestLoadDirInterpretsRenderPlugin(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "spiral.go", spiralPlugin)

	loaded, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("got %d plugins, want 1", len(loaded))
	}
	desc, err := loaded[0].Descriptor()
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	if desc.ID != "spiral" || len(desc.Fields) != 1 {
		t.Fatalf("descriptor %+v", desc)
	}

	layer, err := desc.Render(module.Dimensions{Width: 10, Height: 10}, map[string]any{"turns": 3})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b := layer.(*canvas.Buffer)
	if got := b.At(1, 1); got.Ch != '*' || got.Color != "6" {
		t.Fatalf("plugin cell %+v, want tinted star", got)
	}
	if b.At(5, 5).Ch != 0 {
		t.Fatalf("turns=3 must only mark the first three diagonal cells")
	}
}

func TestLoadDirBuiltinKindPlugin(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "pyth.go", builtinKindPlugin)

	loaded, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("got %d plugins, want 1", len(loaded))
	}
	desc, err := loaded[0].Descriptor()
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	if desc.Render == nil {
		t.Fatalf("builtin-kind plugin must pick up the built-in routine")
	}
}

type logLines struct{ lines []string }

func (l *logLines) Printf(format string, args ...any) { l.lines = append(l.lines, format) }

func TestBrokenPluginIsSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "broken.go", "package main\n\nfunc DiagramDefinitions() {") // syntax error
	writePlugin(t, dir, "good.go", builtinKindPlugin)

	log := &logLines{}
	loaded, err := LoadDir(dir, log)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("good plugin must still load, got %d", len(loaded))
	}
	if len(log.lines) == 0 {
		t.Fatalf("broken plugin must be logged")
	}
}

func TestMissingDirIsNotAnError(t *testing.T) {
	loaded, err := LoadDir(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil || loaded != nil {
		t.Fatalf("missing dir: %v %v", loaded, err)
	}
}
