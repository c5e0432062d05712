package canvas

// Cell is one character cell of a diagram layer. Ch of rune 0 is
// transparent: compositing lets the cell underneath show through.
type Cell struct {
	Ch    rune
	Color string
}

// Buffer is a fixed-size grid of cells. Diagram render routines draw into a
// buffer; the TUI composites the stack bottom-up and prints the result.
type Buffer struct {
	W, H  int
	cells [][]Cell
}

func NewBuffer(w, h int) *Buffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	cells := make([][]Cell, h)
	for y := range cells {
		cells[y] = make([]Cell, w)
	}
	return &Buffer{W: w, H: h, cells: cells}
}

// Set writes one cell. Out-of-bounds writes are dropped so routines can
// plot without clipping checks.
func (b *Buffer) Set(x, y int, ch rune, color string) {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return
	}
	b.cells[y][x] = Cell{Ch: ch, Color: color}
}

// At reads one cell; out of bounds is transparent.
func (b *Buffer) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return Cell{}
	}
	return b.cells[y][x]
}

// Text writes a horizontal string starting at (x, y).
func (b *Buffer) Text(x, y int, s string, color string) {
	for i, r := range []rune(s) {
		b.Set(x+i, y, r, color)
	}
}

// Composite overlays top onto base in place. Transparent top cells leave
// base untouched, so stacking order is visually meaningful.
func Composite(base, top *Buffer) {
	if top == nil || base == nil {
		return
	}
	h := top.H
	if base.H < h {
		h = base.H
	}
	for y := 0; y < h; y++ {
		w := top.W
		if base.W < w {
			w = base.W
		}
		for x := 0; x < w; x++ {
			if top.cells[y][x].Ch != 0 {
				base.cells[y][x] = top.cells[y][x]
			}
		}
	}
}

// Flatten composites a stack of buffers, bottom first, onto a fresh buffer
// of the given size.
func Flatten(w, h int, stack []*Buffer) *Buffer {
	out := NewBuffer(w, h)
	for _, layer := range stack {
		Composite(out, layer)
	}
	return out
}
