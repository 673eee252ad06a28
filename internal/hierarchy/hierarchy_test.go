package hierarchy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/amr/internal/utils"
)

// threeLevel builds a 3D hierarchy with spacing halving at each level:
// level 0 is one 8^3 block, level 1 has two blocks, level 2 has one.
func threeLevel() *Hierarchy {
	return New([3]float64{0, 0, 0}, XYZGrid, []LevelSpec{
		{
			Spacing:         [3]float64{1, 1, 1},
			RefinementRatio: 2,
			Boxes:           []Box{NewBox([]int{0, 0, 0}, []int{7, 7, 7})},
		},
		{
			Spacing:         [3]float64{0.5, 0.5, 0.5},
			RefinementRatio: 2,
			Boxes: []Box{
				NewBox([]int{0, 0, 0}, []int{3, 3, 3}),
				NewBox([]int{8, 8, 8}, []int{15, 15, 15}),
			},
		},
		{
			Spacing: [3]float64{0.25, 0.25, 0.25},
			Boxes:   []Box{NewBox([]int{16, 16, 16}, []int{19, 19, 19})},
		},
	})
}

func TestNew_FlatNumbering(t *testing.T) {
	h := threeLevel()
	require.Equal(t, 3, h.NumLevels())
	require.Equal(t, 4, h.NumBlocks())
	require.Equal(t, 0, h.FlatIndex(0, 0))
	require.Equal(t, 1, h.FlatIndex(1, 0))
	require.Equal(t, 2, h.FlatIndex(1, 1))
	require.Equal(t, 3, h.FlatIndex(2, 0))
}

func TestLevelAndIndex_Bijection(t *testing.T) {
	h := threeLevel()
	for l := 0; l < h.NumLevels(); l++ {
		for i := 0; i < h.NumBlocksAt(l); i++ {
			gotL, gotI := h.LevelAndIndex(h.FlatIndex(l, i))
			require.Equal(t, l, gotL)
			require.Equal(t, i, gotI)
		}
	}
}

func TestOutOfRangePanics(t *testing.T) {
	h := threeLevel()
	require.Panics(t, func() { h.LevelAndIndex(4) })
	require.Panics(t, func() { h.LevelAndIndex(-1) })
	require.Panics(t, func() { h.FlatIndex(3, 0) })
	require.Panics(t, func() { h.FlatIndex(1, 2) })
	require.Panics(t, func() { h.BlocksAtOrBelow(5) })
}

func TestBlockGeometry(t *testing.T) {
	h := threeLevel()
	b := h.Block(2)
	assert.Equal(t, [3]float64{4, 4, 4}, b.Origin)
	assert.Equal(t, [3]int{9, 9, 9}, b.PointDims())
	bounds := b.Bounds()
	assert.Equal(t, [3]float64{4, 4, 4}, bounds.Min)
	assert.Equal(t, [3]float64{8, 8, 8}, bounds.Max)

	global := h.Bounds()
	assert.Equal(t, [3]float64{0, 0, 0}, global.Min)
	assert.Equal(t, [3]float64{8, 8, 8}, global.Max)
	assert.InDelta(t, 4.0, global.Mid(2), 1e-12)
}

func TestBlocksAtOrBelow(t *testing.T) {
	h := threeLevel()

	it := h.BlocksAtOrBelow(1)
	var got []int
	for it.Next() {
		got = append(got, it.Flat())
	}
	require.Equal(t, []int{0, 1, 2}, got)
	require.Equal(t, 3, it.Len())
	require.False(t, it.Next())

	it.Reset()
	got = got[:0]
	for it.Next() {
		got = append(got, it.Block().Flat)
	}
	require.Equal(t, []int{0, 1, 2}, got)

	all := h.BlocksAtOrBelow(2)
	n := 0
	for all.Next() {
		n++
	}
	require.Equal(t, 4, n)
}

func TestBlockIterator_FlatWithoutNext(t *testing.T) {
	it := threeLevel().BlocksAtOrBelow(0)
	require.Panics(t, func() { it.Flat() })
}

func TestRefinementRatio(t *testing.T) {
	h := threeLevel()
	require.Equal(t, 2, h.RefinementRatio(0))
	require.Equal(t, 2, h.RefinementRatio(1))
	require.Equal(t, 1, h.RefinementRatio(2))

	derived := New([3]float64{}, XYPlane, []LevelSpec{
		{Spacing: [3]float64{1, 1, 0}, Boxes: []Box{NewBox([]int{0, 0}, []int{3, 3})}},
		{Spacing: [3]float64{0.25, 0.25, 0}, Boxes: []Box{NewBox([]int{0, 0}, []int{3, 3})}},
	})
	require.Equal(t, 4, derived.RefinementRatio(0))
}

func TestChildrenParents(t *testing.T) {
	h := threeLevel()
	require.Equal(t, []int{1, 2}, h.Children(0))
	require.Equal(t, []int{3}, h.Children(2))
	require.Empty(t, h.Children(1))
	require.Equal(t, []int{0}, h.Parents(1))
	require.Equal(t, []int{2}, h.Parents(3))
	require.Empty(t, h.Parents(0))
}

func TestValidate_Overlap(t *testing.T) {
	require.NoError(t, threeLevel().Validate())

	bad := New([3]float64{}, XYPlane, []LevelSpec{{
		Spacing: [3]float64{1, 1, 0},
		Boxes: []Box{
			NewBox([]int{0, 0}, []int{3, 3}),
			NewBox([]int{3, 3}, []int{5, 5}),
		},
	}})
	err := bad.Validate()
	require.Error(t, err)
	require.True(t, errors.Is(err, utils.ErrFormat))
}

func TestBlockClone_SharesFields(t *testing.T) {
	b := threeLevel().Block(0).Metadata()
	arr := NewFloat64Array("rho", 1, make([]float64, b.NumCells()))
	b.SetCellField(arr)

	c := b.Clone()
	require.Same(t, arr, c.CellData["rho"])

	c.SetCellField(NewFloat32Array("p", 1, make([]float32, b.NumCells())))
	require.NotContains(t, b.CellData, "p")
}

func TestArray(t *testing.T) {
	a := NewFloat32Array("v", 3, []float32{1, 2, 3, 4, 5, 6})
	require.Equal(t, 2, a.Len())
	require.Equal(t, Float32, a.Precision())
	require.Equal(t, 5.0, a.Value(1, 1))

	b := NewArray("v", 3, 2, Float64)
	b.CopyTuple(0, a, 1)
	require.Equal(t, []float64{4, 5, 6, 0, 0, 0}, b.Float64s())

	require.Panics(t, func() { b.CopyTuple(0, NewArray("w", 1, 1, Float64), 0) })
}

func TestOrientation(t *testing.T) {
	require.Equal(t, XYZGrid, OrientationForDim(3))
	require.Equal(t, XYPlane, PlaneOrientation(2))
	require.Equal(t, "yz-plane", PlaneOrientation(0).String())
	require.Panics(t, func() { OrientationForDim(4) })
}
