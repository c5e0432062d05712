package canvas

import "testing"

func TestCompositeRespectsTransparency(t *testing.T) {
	base := NewBuffer(4, 2)
	base.Set(0, 0, 'a', "red")
	base.Set(1, 0, 'b', "red")

	top := NewBuffer(4, 2)
	top.Set(1, 0, 'X', "blue") // covers b
	// (0,0) left transparent: a must survive

	Composite(base, top)

	if got := base.At(0, 0); got.Ch != 'a' || got.Color != "red" {
		t.Fatalf("transparent cell overwrote base: %+v", got)
	}
	if got := base.At(1, 0); got.Ch != 'X' || got.Color != "blue" {
		t.Fatalf("opaque cell did not land: %+v", got)
	}
}

func TestFlattenStacksBottomFirst(t *testing.T) {
	bottom := NewBuffer(2, 1)
	bottom.Set(0, 0, 'b', "")
	topLayer := NewBuffer(2, 1)
	topLayer.Set(0, 0, 't', "")

	out := Flatten(2, 1, []*Buffer{bottom, topLayer})
	if got := out.At(0, 0).Ch; got != 't' {
		t.Fatalf("later layer must draw on top, got %q", got)
	}
}

func TestOutOfBoundsIsSafe(t *testing.T) {
	b := NewBuffer(2, 2)
	b.Set(-1, 0, 'x', "")
	b.Set(5, 5, 'x', "")
	if got := b.At(9, 9); got.Ch != 0 {
		t.Fatalf("out of bounds must read transparent, got %+v", got)
	}
	Composite(NewBuffer(1, 1), NewBuffer(3, 3)) // size mismatch must not panic
}

func TestText(t *testing.T) {
	b := NewBuffer(5, 1)
	b.Text(1, 0, "mos", "gold")
	if b.At(1, 0).Ch != 'm' || b.At(3, 0).Ch != 's' {
		t.Fatalf("text not written")
	}
	if b.At(0, 0).Ch != 0 {
		t.Fatalf("text must not touch cells before x")
	}
}
