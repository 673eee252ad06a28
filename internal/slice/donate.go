package slice

import (
	"math"

	"github.com/scigolib/amr/internal/hierarchy"
)

// cutBlock returns the dataless slice grid of src: the same in-plane box,
// collapsed to a single layer at index 0 along axis.
func cutBlock(src *hierarchy.Block, axis int) hierarchy.Box {
	return src.Box.Collapse(axis, 0)
}

// donorIndex returns the local cell index along one axis of the source
// cell containing coordinate x, or -1 when x lies outside. A coordinate on
// the upper face belongs to the last cell.
func donorIndex(x, origin, spacing float64, cells int) int {
	if spacing <= 0 {
		return -1
	}
	i := int(math.Floor((x - origin) / spacing))
	if i == cells && x == origin+float64(cells)*spacing {
		i = cells - 1
	}
	if i < 0 || i >= cells {
		return -1
	}
	return i
}

// donate fills out's cell data from src by centroid lookup and returns the
// number of output cells with no donor. plane is the cut coordinate along
// axis; out.Origin and out.Spacing place the output cells.
func donate(src, out *hierarchy.Block, axis int, plane float64, fields []string) int {
	n := out.NumCells()
	arrays := make([]*hierarchy.Array, 0, len(fields))
	sources := make([]*hierarchy.Array, 0, len(fields))
	for _, name := range fields {
		a, ok := src.CellData[name]
		if !ok {
			continue
		}
		sources = append(sources, a)
		arrays = append(arrays, hierarchy.NewArray(name, a.Components, n, a.Precision()))
	}

	var cells [3]int
	for a := 0; a < 3; a++ {
		cells[a] = src.Box.CellExtent(a)
	}

	orphans := 0
	dst := 0
	out.Box.ForEachCell(func(ijk [3]int) {
		defer func() { dst++ }()

		idx, stride := 0, 1
		for a := 0; a < 3; a++ {
			var c float64
			switch {
			case a == axis:
				c = plane
			case a < out.Box.Dim && !out.Box.Degenerate(a):
				c = out.Origin[a] + (float64(ijk[a]-out.Box.Lo[a])+0.5)*out.Spacing[a]
			default:
				// Inactive axis: single layer.
				stride *= cells[a]
				continue
			}
			i := donorIndex(c, src.Origin[a], src.Spacing[a], cells[a])
			if i < 0 {
				orphans++
				return
			}
			idx += i * stride
			stride *= cells[a]
		}
		for k, a := range arrays {
			a.CopyTuple(dst, sources[k], idx)
		}
	})

	for _, a := range arrays {
		out.SetCellField(a)
	}
	return orphans
}
