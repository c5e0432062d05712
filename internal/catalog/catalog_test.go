package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kverel/tonewheel/internal/field"
)

func TestDefaultCatalogParses(t *testing.T) {
	c := Default()
	if len(c.Modules) != 3 {
		t.Fatalf("built-in catalog has %d modules, want 3", len(c.Modules))
	}
	for _, m := range c.Modules {
		if _, err := m.Descriptor(); err != nil {
			t.Fatalf("module %s: %v", m.ID, err)
		}
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("version: 1\nmodulez:\n  - id: x\n"))
	if err == nil {
		t.Fatalf("unknown key must fail strict decoding")
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	doc := `
version: 1
modules:
  - id: edo
    title: A
    kind: edo
  - id: edo
    title: B
    kind: edo
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("duplicate module ids must be rejected")
	}
}

func TestMergeReplacesAndAppends(t *testing.T) {
	c := Default()
	user := &Catalog{Modules: []ModuleDef{
		{ID: "edo", Title: "My EDO", Kind: "edo"},
		{ID: "custom", Title: "Custom", Kind: "mos"},
	}}
	c.Merge(user)

	if c.Modules[0].Title != "My EDO" {
		t.Fatalf("merge must replace in place, got %q", c.Modules[0].Title)
	}
	last := c.Modules[len(c.Modules)-1]
	if last.ID != "custom" {
		t.Fatalf("merge must append new ids, got %q", last.ID)
	}
}

func TestLoadFallsBackOnMalformedUserCatalog(t *testing.T) {
	dir := t.TempDir()
	if err := InitDir(dir); err != nil {
		t.Fatalf("init dir: %v", err)
	}
	path := filepath.Join(dir, Dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte("modules: [nonsense"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := Load(dir, nil)
	if len(c.Modules) != 3 {
		t.Fatalf("malformed user catalog must leave the defaults, got %d modules", len(c.Modules))
	}
}

func TestInitDirWritesEditableCatalog(t *testing.T) {
	dir := t.TempDir()
	if err := InitDir(dir); err != nil {
		t.Fatalf("init dir: %v", err)
	}
	doc := `
version: 1
modules:
  - id: edo
    title: Only One
    kind: edo
    fields:
      - name: divisions
        kind: int
        min: 1
        max: 96
        default: 19
`
	if err := os.WriteFile(filepath.Join(dir, Dir, "catalog.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := Load(dir, nil)
	found := false
	for _, m := range c.Modules {
		if m.ID == "edo" {
			found = true
			if m.Title != "Only One" {
				t.Fatalf("user catalog must override, got %q", m.Title)
			}
		}
	}
	if !found {
		t.Fatalf("edo missing after merge")
	}
	if err := InitDir(dir); err != nil {
		t.Fatalf("second init: %v", err)
	}
	c = Load(dir, nil)
	for _, m := range c.Modules {
		if m.ID == "edo" && m.Title != "Only One" {
			t.Fatalf("init must not overwrite an existing user catalog")
		}
	}
}

func TestFieldSpecDefaultsNormalized(t *testing.T) {
	def := ModuleDef{ID: "x", Title: "x", Kind: "edo", Fields: []FieldDef{
		{Name: "divisions", Kind: "int", Min: 1, Max: 96, Default: 12},
		{Name: "generator", Kind: "float", Min: 0, Max: 1200, Default: 700},
	}}
	specs, err := def.FieldSpecs()
	if err != nil {
		t.Fatalf("specs: %v", err)
	}
	if specs[0].Default != 12 {
		t.Fatalf("int default %v (%T)", specs[0].Default, specs[0].Default)
	}
	if specs[1].Default != 700.0 {
		t.Fatalf("float default must normalize to float64, got %T", specs[1].Default)
	}
	if specs[0].Kind != field.KindInt {
		t.Fatalf("kind mapping broken")
	}
}

func TestUnknownFieldKind(t *testing.T) {
	def := ModuleDef{ID: "x", Title: "x", Kind: "edo", Fields: []FieldDef{
		{Name: "q", Kind: "slider"},
	}}
	if _, err := def.FieldSpecs(); err == nil {
		t.Fatalf("unknown field kind must error")
	}
}
