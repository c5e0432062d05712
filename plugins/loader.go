// plugins/loader.go
//
// User-supplied diagram plugins. Each .go file in the plugin directory is
// interpreted with yaegi and must declare
//
//	func DiagramDefinitions() ([]map[string]any, error)
//
// returning catalog-shaped module definitions. A file may also declare
//
//	func Render(width, height int, values map[string]float64) [][]rune
//
// which becomes the render routine for the modules it defines; without it,
// a definition's kind must name a built-in diagram.

package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"

	"github.com/kverel/tonewheel/internal/canvas"
	"github.com/kverel/tonewheel/internal/catalog"
	"github.com/kverel/tonewheel/internal/module"
)

const (
	definitionsFuncName = "DiagramDefinitions"
	renderFuncName      = "Render"
)

// Logger is the subset of the session logger the loader needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Loaded is one plugin-provided module: its catalog definition plus the
// plugin's render routine, when the file supplies one.
type Loaded struct {
	Definition catalog.ModuleDef
	Routine    module.RenderRoutine
	Path       string
}

// LoadDir interprets every .go file in dir and collects diagram modules. A
// file that fails to interpret or declares a malformed definition is logged
// and skipped; the rest of the directory still loads. A missing directory
// is not an error.
func LoadDir(dir string, log Logger) ([]Loaded, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var loaded []Loaded
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		path := filepath.Join(trimmed, entry.Name())
		fileLoaded, err := loadFile(path)
		if err != nil {
			if log != nil {
				log.Printf("plugin: skipping %s: %v", path, err)
			}
			continue
		}
		loaded = append(loaded, fileLoaded...)
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Path < loaded[j].Path })
	return loaded, nil
}

func loadFile(path string) ([]Loaded, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return nil, fmt.Errorf("plugin: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	fnValue, err := i.Eval(definitionsFuncName)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s must define %s() ([]map[string]any, error): %w",
			path, definitionsFuncName, err)
	}
	rawDefs, err := invokeDefinitionsFunc(fnValue)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}

	var routine module.RenderRoutine
	if renderValue, err := i.Eval(renderFuncName); err == nil {
		routine, err = wrapRenderFunc(renderValue)
		if err != nil {
			return nil, fmt.Errorf("plugin: %s: %w", path, err)
		}
	}

	loaded := make([]Loaded, 0, len(rawDefs))
	for idx, raw := range rawDefs {
		def, err := parseDefinition(raw)
		if err != nil {
			return nil, fmt.Errorf("plugin: %s definition[%d]: %w", path, idx, err)
		}
		loaded = append(loaded, Loaded{
			Definition: def,
			Routine:    routine,
			Path:       fmt.Sprintf("%s#%d", path, idx+1),
		})
	}
	return loaded, nil
}

// Descriptor builds the module descriptor for one loaded plugin module.
// Without a plugin Render function the definition's kind must name a
// built-in diagram; with one, the plugin routine draws in the module's
// accent color.
func (l Loaded) Descriptor() (module.Descriptor, error) {
	if l.Routine == nil {
		return l.Definition.Descriptor()
	}
	specs, err := l.Definition.FieldSpecs()
	if err != nil {
		return module.Descriptor{}, err
	}
	color := l.Definition.Color
	routine := l.Routine
	colored := func(dims module.Dimensions, values map[string]any) (module.Layer, error) {
		layer, err := routine(dims, values)
		if err != nil {
			return nil, err
		}
		if b, ok := layer.(*canvas.Buffer); ok && color != "" {
			tinted := canvas.NewBuffer(b.W, b.H)
			for y := 0; y < b.H; y++ {
				for x := 0; x < b.W; x++ {
					if c := b.At(x, y); c.Ch != 0 {
						tinted.Set(x, y, c.Ch, color)
					}
				}
			}
			return tinted, nil
		}
		return layer, nil
	}
	return module.Descriptor{
		ID:              l.Definition.ID,
		Title:           l.Definition.Title,
		Color:           color,
		Render:          colored,
		Fields:          specs,
		DefaultExpanded: l.Definition.Expanded,
	}, nil
}

// parseDefinition round-trips the interpreted map through YAML into the
// catalog schema, reusing its strict decoding.
func parseDefinition(raw map[string]any) (catalog.ModuleDef, error) {
	payload, err := yaml.Marshal(map[string]any{"version": 1, "modules": []any{raw}})
	if err != nil {
		return catalog.ModuleDef{}, err
	}
	parsed, err := catalog.Parse(payload)
	if err != nil {
		return catalog.ModuleDef{}, err
	}
	if len(parsed.Modules) != 1 {
		return catalog.ModuleDef{}, fmt.Errorf("expected one module definition, got %d", len(parsed.Modules))
	}
	return parsed.Modules[0], nil
}

func invokeDefinitionsFunc(value reflect.Value) ([]map[string]any, error) {
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", definitionsFuncName)
	}
	results := value.Call(nil)
	if len(results) == 0 || len(results) > 2 {
		return nil, fmt.Errorf("%s must return ([]map[string]any[, error])", definitionsFuncName)
	}
	if len(results) == 2 && !results[1].IsNil() {
		if e, ok := results[1].Interface().(error); ok && e != nil {
			return nil, e
		}
		return nil, fmt.Errorf("%s returned a non-error second value", definitionsFuncName)
	}
	defsVal := results[0]
	if defs, ok := defsVal.Interface().([]map[string]any); ok {
		return defs, nil
	}
	if defsVal.Kind() == reflect.Slice {
		out := make([]map[string]any, defsVal.Len())
		for i := 0; i < defsVal.Len(); i++ {
			m, ok := defsVal.Index(i).Interface().(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d] is not map[string]any", definitionsFuncName, i)
			}
			out[i] = m
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must return a slice of definitions", definitionsFuncName)
}

// wrapRenderFunc adapts the interpreted Render function to the render
// routine contract: field values flatten to float64 (bools as 0/1, ints
// widened) and the returned rune grid becomes a canvas layer. Interpreter
// panics surface through the coordinator's error boundary like any other
// routine failure.
func wrapRenderFunc(value reflect.Value) (module.RenderRoutine, error) {
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", renderFuncName)
	}
	fn := value
	return func(dims module.Dimensions, values map[string]any) (module.Layer, error) {
		flat := make(map[string]float64, len(values))
		for k, v := range values {
			switch t := v.(type) {
			case int:
				flat[k] = float64(t)
			case float64:
				flat[k] = t
			case bool:
				if t {
					flat[k] = 1
				}
			}
		}
		results := fn.Call([]reflect.Value{
			reflect.ValueOf(dims.Width),
			reflect.ValueOf(dims.Height),
			reflect.ValueOf(flat),
		})
		if len(results) != 1 {
			return nil, fmt.Errorf("plugin: %s must return [][]rune", renderFuncName)
		}
		grid, ok := results[0].Interface().([][]rune)
		if !ok {
			return nil, fmt.Errorf("plugin: %s returned %T, want [][]rune", renderFuncName, results[0].Interface())
		}
		b := canvas.NewBuffer(dims.Width, dims.Height)
		for y, row := range grid {
			for x, ch := range row {
				if ch != 0 && ch != ' ' {
					b.Set(x, y, ch, "")
				}
			}
		}
		return b, nil
	}, nil
}
