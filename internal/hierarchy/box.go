// Package hierarchy holds the in-memory index of an AMR hierarchy: levels,
// blocks, integer boxes and the composite block numbering. It answers
// structural queries without touching disk.
package hierarchy

import "fmt"

// Box is an inclusive integer cell-index range over Dim active axes.
// Axes at or beyond Dim are inactive and hold Lo = Hi = 0.
//
// An active axis with Hi == Lo-1 is degenerate: it spans zero cells and
// collapses to a single point. Slices use it for the cut axis.
type Box struct {
	Lo  [3]int
	Hi  [3]int
	Dim int
}

// NewBox returns a box over len(lo) axes.
func NewBox(lo, hi []int) Box {
	if len(lo) != len(hi) || len(lo) == 0 || len(lo) > 3 {
		panic(fmt.Sprintf("hierarchy: box bounds of length %d/%d", len(lo), len(hi)))
	}
	b := Box{Dim: len(lo)}
	copy(b.Lo[:], lo)
	copy(b.Hi[:], hi)
	return b
}

// Collapse returns a copy of b whose axis a is degenerate at index lo.
func (b Box) Collapse(a, lo int) Box {
	c := b
	c.Lo[a] = lo
	c.Hi[a] = lo - 1
	return c
}

// Degenerate reports whether active axis a spans zero cells.
func (b Box) Degenerate(a int) bool {
	return a < b.Dim && b.Hi[a] == b.Lo[a]-1
}

// Empty reports whether the box covers nothing.
func (b Box) Empty() bool {
	for a := 0; a < b.Dim; a++ {
		if b.Hi[a] < b.Lo[a]-1 {
			return true
		}
	}
	return false
}

// CellExtent returns the number of cells along axis a. Inactive and
// degenerate axes count as one layer.
func (b Box) CellExtent(a int) int {
	switch {
	case a >= b.Dim, b.Degenerate(a):
		return 1
	case b.Hi[a] < b.Lo[a]:
		return 0
	}
	return b.Hi[a] - b.Lo[a] + 1
}

// NumCells returns the number of cells covered by the box.
func (b Box) NumCells() int {
	n := 1
	for a := 0; a < 3; a++ {
		n *= b.CellExtent(a)
	}
	return n
}

// PointDims returns the grid dimensions in points: (hi-lo)+2 along active
// axes, 1 along inactive and degenerate ones.
func (b Box) PointDims() [3]int {
	d := [3]int{1, 1, 1}
	for a := 0; a < b.Dim; a++ {
		if !b.Degenerate(a) {
			d[a] = b.Hi[a] - b.Lo[a] + 2
		}
	}
	return d
}

// Coarsen maps the box to the next coarser level at refinement ratio r.
func (b Box) Coarsen(r int) Box {
	c := b
	for a := 0; a < b.Dim; a++ {
		c.Lo[a] = floorDiv(b.Lo[a], r)
		if b.Degenerate(a) {
			c.Hi[a] = c.Lo[a] - 1
			continue
		}
		c.Hi[a] = floorDiv(b.Hi[a], r)
	}
	return c
}

// Refine maps the box to the next finer level at refinement ratio r.
func (b Box) Refine(r int) Box {
	c := b
	for a := 0; a < b.Dim; a++ {
		c.Lo[a] = b.Lo[a] * r
		if b.Degenerate(a) {
			c.Hi[a] = c.Lo[a] - 1
			continue
		}
		c.Hi[a] = (b.Hi[a]+1)*r - 1
	}
	return c
}

// Intersect returns the overlap of two boxes; the result may be Empty.
func (b Box) Intersect(o Box) Box {
	c := b
	for a := 0; a < b.Dim; a++ {
		if b.Degenerate(a) || o.Degenerate(a) {
			flat, other := b, o
			if !b.Degenerate(a) {
				flat, other = o, b
			}
			lo := flat.Lo[a]
			c.Lo[a] = lo
			if (other.Degenerate(a) && other.Lo[a] == lo) ||
				(!other.Degenerate(a) && lo >= other.Lo[a] && lo <= other.Hi[a]) {
				c.Hi[a] = lo - 1
			} else {
				c.Hi[a] = lo - 2
			}
			continue
		}
		c.Lo[a] = max(b.Lo[a], o.Lo[a])
		c.Hi[a] = min(b.Hi[a], o.Hi[a])
		if c.Hi[a] < c.Lo[a] {
			c.Hi[a] = c.Lo[a] - 2
		}
	}
	return c
}

// Intersects reports whether two boxes share at least one cell.
func (b Box) Intersects(o Box) bool {
	return !b.Intersect(o).Empty()
}

// CellIndex returns the x-fastest linear index of global cell (i, j, k)
// within the box, or -1 when the cell is outside.
func (b Box) CellIndex(ijk [3]int) int {
	idx, stride := 0, 1
	for a := 0; a < 3; a++ {
		n := b.CellExtent(a)
		local := 0
		if a < b.Dim {
			local = ijk[a] - b.Lo[a]
		}
		if local < 0 || local >= n {
			return -1
		}
		idx += local * stride
		stride *= n
	}
	return idx
}

// ForEachCell calls fn with the global index of every cell in x-fastest order.
func (b Box) ForEachCell(fn func(ijk [3]int)) {
	if b.Empty() {
		return
	}
	var lo, n [3]int
	for a := 0; a < 3; a++ {
		if a < b.Dim {
			lo[a] = b.Lo[a]
		}
		n[a] = b.CellExtent(a)
	}
	for k := 0; k < n[2]; k++ {
		for j := 0; j < n[1]; j++ {
			for i := 0; i < n[0]; i++ {
				fn([3]int{lo[0] + i, lo[1] + j, lo[2] + k})
			}
		}
	}
}

// String formats the box in plotfile notation.
func (b Box) String() string {
	return fmt.Sprintf("(%v %v)", b.Lo[:b.Dim], b.Hi[:b.Dim])
}

func floorDiv(v, r int) int {
	q := v / r
	if (v%r != 0) && ((v < 0) != (r < 0)) {
		q--
	}
	return q
}
