package ownership

import (
	"github.com/scigolib/amr/internal/hierarchy"
)

// Blank attaches a visibility mask to every block of h and returns the
// number of hidden cells per flat index. A cell is hidden on rank when a
// finer block covers it, when its block is owned by another rank, or when
// an earlier assigned block of the same level covers it too.
//
// Hidden cells never become visible again: Blank only adds coverage to
// what refinement already hides.
func Blank(h *hierarchy.Hierarchy, m Map, rank int) []int {
	hidden := make([]int, h.NumBlocks())
	for l := 0; l < h.NumLevels(); l++ {
		ratio := h.RefinementRatio(l)
		blocks := h.Level(l).Blocks
		for bi, b := range blocks {
			mask := make([]uint8, b.NumCells())
			if m.Owner(b.Flat) != rank {
				for i := range mask {
					mask[i] = hierarchy.Hidden
				}
			} else {
				for _, child := range h.Children(b.Flat) {
					covered := h.Block(child).Box.Coarsen(ratio).Intersect(b.Box)
					covered.ForEachCell(func(ijk [3]int) {
						if i := b.Box.CellIndex(ijk); i >= 0 {
							mask[i] = hierarchy.Hidden
						}
					})
				}
				hideCoincident(b, blocks[:bi], m, mask)
			}
			b.Blank = mask
			hidden[b.Flat] = b.HiddenCells()
		}
	}
	return hidden
}

// hideCoincident hides the cells of b that an earlier assigned sibling
// also covers, so each cell has one visible copy across ranks.
func hideCoincident(b *hierarchy.Block, earlier []*hierarchy.Block, m Map, mask []uint8) {
	for _, o := range earlier {
		if m.Owner(o.Flat) == Unassigned {
			continue
		}
		b.Box.Intersect(o.Box).ForEachCell(func(ijk [3]int) {
			if i := b.Box.CellIndex(ijk); i >= 0 {
				mask[i] = hierarchy.Hidden
			}
		})
	}
}

// Refined returns the number of cells of block flat covered by finer
// blocks, independent of ownership.
func Refined(h *hierarchy.Hierarchy, flat int) int {
	b := h.Block(flat)
	ratio := h.RefinementRatio(b.Level)
	seen := make([]bool, b.NumCells())
	n := 0
	for _, child := range h.Children(flat) {
		h.Block(child).Box.Coarsen(ratio).Intersect(b.Box).ForEachCell(func(ijk [3]int) {
			if i := b.Box.CellIndex(ijk); i >= 0 && !seen[i] {
				seen[i] = true
				n++
			}
		})
	}
	return n
}
