// internal/catalog/catalog.go
//
// The module catalog: which configuration panels exist, their accent
// colors, and their field specs. The built-in catalog is embedded; a user
// catalog at .tonewheel/catalog.yaml overrides or extends it. The catalog
// is data about panels, not session state; panel state itself lives only
// in the in-memory store.

package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kverel/tonewheel/internal/diagram"
	"github.com/kverel/tonewheel/internal/field"
	"github.com/kverel/tonewheel/internal/module"
)

const (
	// Dir is the per-project directory tonewheel keeps its files in.
	Dir = ".tonewheel"

	catalogFile = "catalog.yaml"
)

const defaultCatalogYAML = `# tonewheel module catalog
# Each entry becomes one sidebar panel and one diagram layer.
version: 1

modules:
  - id: edo
    title: Equal Division
    kind: edo
    color: "5"
    expanded: true
    fields:
      - name: divisions
        label: Divisions
        kind: int
        min: 1
        max: 96
        step: 1
        default: 12
      - name: generator
        label: Generator steps
        kind: int
        min: 0
        max: 95
        step: 1
        default: 7
      - name: style
        label: Marker style
        kind: choice
        choices: [dots, numbers]
        default: dots
      - name: active
        label: Active
        kind: bool
        default: true

  - id: ji
    title: Just Intonation
    kind: ji
    color: "2"
    expanded: false
    fields:
      - name: limit
        label: Odd limit
        kind: int
        min: 3
        max: 15
        step: 2
        default: 5
      - name: active
        label: Active
        kind: bool
        default: false

  - id: mos
    title: Moment of Symmetry
    kind: mos
    color: "3"
    expanded: false
    fields:
      - name: generator
        label: Generator (cents)
        kind: float
        min: 0
        max: 1200
        step: 0.5
        default: 701.955
      - name: notes
        label: Notes
        kind: int
        min: 1
        max: 24
        step: 1
        default: 7
      - name: active
        label: Active
        kind: bool
        default: false
`

// Logger is the subset of the session logger the catalog needs.
type Logger interface {
	Printf(format string, args ...any)
}

// FieldDef models one field entry in catalog YAML.
type FieldDef struct {
	Name    string   `yaml:"name"`
	Label   string   `yaml:"label,omitempty"`
	Kind    string   `yaml:"kind"`
	Min     float64  `yaml:"min,omitempty"`
	Max     float64  `yaml:"max,omitempty"`
	Step    float64  `yaml:"step,omitempty"`
	Default any      `yaml:"default,omitempty"`
	Choices []string `yaml:"choices,omitempty"`
}

// ModuleDef models one module entry in catalog YAML.
type ModuleDef struct {
	ID       string     `yaml:"id"`
	Title    string     `yaml:"title"`
	Kind     string     `yaml:"kind"`
	Color    string     `yaml:"color,omitempty"`
	Expanded bool       `yaml:"expanded,omitempty"`
	Fields   []FieldDef `yaml:"fields,omitempty"`
}

// Catalog models catalog.yaml.
type Catalog struct {
	Version int         `yaml:"version"`
	Modules []ModuleDef `yaml:"modules"`
}

// Parse decodes catalog YAML strictly, so a typo in a key is an error
// rather than a silently ignored field.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	seen := map[string]bool{}
	for _, m := range c.Modules {
		if m.ID == "" {
			return nil, fmt.Errorf("catalog: module without id")
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("catalog: module %s defined twice", m.ID)
		}
		seen[m.ID] = true
	}
	return &c, nil
}

// Default returns the embedded built-in catalog.
func Default() *Catalog {
	c, err := Parse([]byte(defaultCatalogYAML))
	if err != nil {
		// The embedded document is part of the binary; failing to parse
		// it is a build defect.
		panic(err)
	}
	return c
}

// Load returns the effective catalog for a project: the embedded defaults
// with the user catalog (if any) merged over them. A malformed user catalog
// is logged and skipped, and the app still starts with the defaults.
func Load(projectDir string, log Logger) *Catalog {
	c := Default()
	path := filepath.Join(projectDir, Dir, catalogFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && log != nil {
			log.Printf("catalog: read %s: %v", path, err)
		}
		return c
	}
	user, err := Parse(data)
	if err != nil {
		if log != nil {
			log.Printf("catalog: ignoring %s: %v", path, err)
		}
		return c
	}
	c.Merge(user)
	return c
}

// Merge overlays other onto c: entries with a known id replace the built-in
// definition, new ids append in order.
func (c *Catalog) Merge(other *Catalog) {
	for _, m := range other.Modules {
		replaced := false
		for i, existing := range c.Modules {
			if existing.ID == m.ID {
				c.Modules[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			c.Modules = append(c.Modules, m)
		}
	}
}

// Encode renders the catalog back to YAML.
func (c *Catalog) Encode() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode: %w", err)
	}
	return out, nil
}

// FieldSpecs converts the module's field definitions to specs.
func (m ModuleDef) FieldSpecs() ([]field.Spec, error) {
	specs := make([]field.Spec, 0, len(m.Fields))
	for _, f := range m.Fields {
		kind, err := fieldKind(f.Kind)
		if err != nil {
			return nil, fmt.Errorf("catalog: module %s field %s: %w", m.ID, f.Name, err)
		}
		label := f.Label
		if label == "" {
			label = f.Name
		}
		specs = append(specs, field.Spec{
			Name:    f.Name,
			Label:   label,
			Kind:    kind,
			Min:     f.Min,
			Max:     f.Max,
			Step:    f.Step,
			Default: normalizeDefault(kind, f.Default),
			Choices: append([]string(nil), f.Choices...),
		})
	}
	return specs, nil
}

// Descriptor builds the module descriptor for one catalog entry, wiring the
// built-in render routine for its kind.
func (m ModuleDef) Descriptor() (module.Descriptor, error) {
	routine, err := diagram.Routine(m.Kind, m.Color)
	if err != nil {
		return module.Descriptor{}, fmt.Errorf("catalog: module %s: %w", m.ID, err)
	}
	specs, err := m.FieldSpecs()
	if err != nil {
		return module.Descriptor{}, err
	}
	return module.Descriptor{
		ID:              m.ID,
		Title:           m.Title,
		Color:           m.Color,
		Render:          routine,
		Fields:          specs,
		DefaultExpanded: m.Expanded,
	}, nil
}

// InitDir creates the .tonewheel directory structure and writes the default
// catalog for the user to edit. Called once at startup.
//
// Structure created:
// .tonewheel/
// ├── catalog.yaml  <- effective module catalog (editable)
// ├── logs/         <- session logs
// └── plugins/      <- user diagram plugins (*.go, interpreted)
func InitDir(projectDir string) error {
	root := filepath.Join(projectDir, Dir)
	for _, dir := range []string{
		root,
		filepath.Join(root, "logs"),
		filepath.Join(root, "plugins"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("catalog: create %s: %w", dir, err)
		}
	}
	path := filepath.Join(root, catalogFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, []byte(defaultCatalogYAML), 0o644); err != nil {
			return fmt.Errorf("catalog: write default catalog: %w", err)
		}
	}
	return nil
}

// PluginsDir returns the project's plugin directory.
func PluginsDir(projectDir string) string {
	return filepath.Join(projectDir, Dir, "plugins")
}

// LogsDir returns the project's log directory.
func LogsDir(projectDir string) string {
	return filepath.Join(projectDir, Dir, "logs")
}

func fieldKind(kind string) (field.Kind, error) {
	switch kind {
	case "int":
		return field.KindInt, nil
	case "float":
		return field.KindFloat, nil
	case "bool":
		return field.KindBool, nil
	case "choice":
		return field.KindChoice, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", kind)
}

// normalizeDefault lines YAML's decoding up with what validators emit, so
// an untouched field compares equal to its committed form.
func normalizeDefault(kind field.Kind, def any) any {
	switch kind {
	case field.KindInt:
		switch v := def.(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
		return 0
	case field.KindFloat:
		switch v := def.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
		return 0.0
	case field.KindBool:
		if v, ok := def.(bool); ok {
			return v
		}
		return false
	case field.KindChoice:
		if v, ok := def.(string); ok {
			return v
		}
		return ""
	}
	return def
}
