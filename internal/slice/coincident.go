package slice

import "github.com/scigolib/amr/internal/hierarchy"

// dropCoincident removes selected blocks whose cut is already covered by
// the cuts of earlier selected blocks on the same level. Two blocks that
// share a face on the plane cut to the same cells; the earlier one in
// flat order donates them. selected must be in flat order.
func dropCoincident(h *hierarchy.Hierarchy, selected []int, axis int) (kept, dropped []int) {
	var cuts []hierarchy.Box
	level := -1
	for _, flat := range selected {
		b := h.Block(flat)
		if b.Level != level {
			level, cuts = b.Level, cuts[:0]
		}
		cut := cutBlock(b, axis)
		if coveredBy(cut, cuts) {
			dropped = append(dropped, flat)
			continue
		}
		cuts = append(cuts, cut)
		kept = append(kept, flat)
	}
	return kept, dropped
}

// coveredBy reports whether every cell of box lies in one of others.
func coveredBy(box hierarchy.Box, others []hierarchy.Box) bool {
	left := box.NumCells()
	if left == 0 {
		return false
	}
	seen := make([]bool, left)
	for _, o := range others {
		box.Intersect(o).ForEachCell(func(ijk [3]int) {
			if i := box.CellIndex(ijk); i >= 0 && !seen[i] {
				seen[i] = true
				left--
			}
		})
		if left == 0 {
			return true
		}
	}
	return false
}
