package module

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kverel/tonewheel/internal/field"
	"github.com/kverel/tonewheel/internal/state"
)

func testDescriptor(id string) Descriptor {
	return Descriptor{
		ID:    id,
		Title: "Module " + id,
		Render: func(Dimensions, map[string]any) (Layer, error) {
			return id, nil
		},
		Fields: []field.Spec{
			{Name: "divisions", Kind: field.KindInt, Min: 1, Max: 96, Default: 12},
		},
	}
}

func TestRegisterSeedsStoreState(t *testing.T) {
	s := state.New()
	r := NewRegistry(s, nil)

	if err := r.Register(testDescriptor("edo")); err != nil {
		t.Fatalf("register: %v", err)
	}

	order, _ := s.Get(OrderPath)
	if !reflect.DeepEqual(order, []string{"edo"}) {
		t.Fatalf("moduleOrder = %v", order)
	}
	if v, _ := s.Get("modules.edo.divisions"); v != 12 {
		t.Fatalf("field default not seeded, got %v", v)
	}
	if v, _ := s.Get("modules.edo.expanded"); v != false {
		t.Fatalf("expanded default not seeded, got %v", v)
	}
}

func TestRegisterDuplicateID(t *testing.T) {
	s := state.New()
	r := NewRegistry(s, nil)
	if err := r.Register(testDescriptor("edo")); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := r.Register(testDescriptor("edo"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("got %v, want ErrDuplicateID", err)
	}
	if got := r.Order(); len(got) != 1 {
		t.Fatalf("failed register must not grow the order: %v", got)
	}
}

func TestReorderAcceptsPermutation(t *testing.T) {
	s := state.New()
	r := NewRegistry(s, nil)
	for _, id := range []string{"edo", "ji", "mos"} {
		if err := r.Register(testDescriptor(id)); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	accepted, err := r.Reorder([]string{"mos", "edo", "ji"})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	want := []string{"mos", "edo", "ji"}
	if !reflect.DeepEqual(accepted, want) {
		t.Fatalf("accepted %v, want %v", accepted, want)
	}
	stored, _ := s.Get(OrderPath)
	if !reflect.DeepEqual(stored, want) {
		t.Fatalf("store holds %v, want %v", stored, want)
	}
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	s := state.New()
	r := NewRegistry(s, nil)
	for _, id := range []string{"edo", "ji", "mos"} {
		if err := r.Register(testDescriptor(id)); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	before := r.Order()

	cases := [][]string{
		{"edo", "ji"},                  // missing id
		{"edo", "ji", "mos", "extra"},  // unknown id
		{"edo", "edo", "mos"},          // duplicate
		{"edo", "ji", "lattice"},       // unknown id, right length
		nil,                            // empty
	}
	for _, candidate := range cases {
		got, err := r.Reorder(candidate)
		if !errors.Is(err, ErrInvalidOrder) {
			t.Fatalf("reorder(%v) err = %v, want ErrInvalidOrder", candidate, err)
		}
		if !reflect.DeepEqual(got, before) {
			t.Fatalf("reorder(%v) disturbed order: %v", candidate, got)
		}
	}
	if !reflect.DeepEqual(r.Order(), before) {
		t.Fatalf("order changed after rejected reorders")
	}
}

func TestReorderCommitNotifiesSubscribers(t *testing.T) {
	s := state.New()
	r := NewRegistry(s, nil)
	for _, id := range []string{"edo", "ji"} {
		if err := r.Register(testDescriptor(id)); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	var commits int
	s.Subscribe(OrderPath, func(string, any) { commits++ })

	if _, err := r.Reorder([]string{"ji", "edo"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if commits != 1 {
		t.Fatalf("got %d moduleOrder commits, want exactly 1", commits)
	}
}

func TestDescriptorValidate(t *testing.T) {
	d := testDescriptor("edo")
	d.Render = nil
	if err := d.Validate(); err == nil {
		t.Fatalf("descriptor without render routine must not validate")
	}
	d = testDescriptor("edo")
	d.Fields = append(d.Fields, field.Spec{Name: "divisions"})
	if err := d.Validate(); err == nil {
		t.Fatalf("duplicate field names must not validate")
	}
}
