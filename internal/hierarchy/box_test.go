package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox_PointDims(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want [3]int
	}{
		{"3D", NewBox([]int{0, 0, 0}, []int{3, 7, 1}), [3]int{5, 9, 3}},
		{"2D", NewBox([]int{2, 2}, []int{5, 3}), [3]int{5, 3, 1}},
		{"1D", NewBox([]int{0}, []int{9}), [3]int{11, 1, 1}},
		{"degenerate z", NewBox([]int{0, 0, 0}, []int{3, 3, 3}).Collapse(2, 0), [3]int{5, 5, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.box.PointDims())
		})
	}
}

func TestBox_NumCells(t *testing.T) {
	require.Equal(t, 4*8*2, NewBox([]int{0, 0, 0}, []int{3, 7, 1}).NumCells())
	require.Equal(t, 16, NewBox([]int{0, 0, 0}, []int{3, 3, 3}).Collapse(1, 0).NumCells())
	require.Equal(t, 0, NewBox([]int{0, 0}, []int{-5, 3}).NumCells())
}

func TestBox_CoarsenRefine(t *testing.T) {
	fine := NewBox([]int{4, 6, -3}, []int{11, 9, 0})
	coarse := fine.Coarsen(2)
	assert.Equal(t, [3]int{2, 3, -2}, coarse.Lo)
	assert.Equal(t, [3]int{5, 4, 0}, coarse.Hi)

	refined := NewBox([]int{1, 1}, []int{2, 3}).Refine(4)
	assert.Equal(t, [3]int{4, 4, 0}, refined.Lo)
	assert.Equal(t, [3]int{11, 15, 0}, refined.Hi)

	flat := NewBox([]int{0, 0, 0}, []int{7, 7, 7}).Collapse(2, 0)
	require.True(t, flat.Coarsen(2).Degenerate(2))
	require.True(t, flat.Refine(2).Degenerate(2))
}

func TestBox_Intersect(t *testing.T) {
	a := NewBox([]int{0, 0, 0}, []int{7, 7, 7})
	b := NewBox([]int{4, 6, 7}, []int{12, 12, 9})
	require.True(t, a.Intersects(b))
	got := a.Intersect(b)
	require.Equal(t, [3]int{4, 6, 7}, got.Lo)
	require.Equal(t, [3]int{7, 7, 7}, got.Hi)

	touching := NewBox([]int{8, 0, 0}, []int{9, 7, 7})
	require.False(t, a.Intersects(touching))

	// Adjacent boxes one cell apart must not look degenerate.
	apart := NewBox([]int{0, 0, 0}, []int{0, 0, 0}).Intersect(NewBox([]int{1, 0, 0}, []int{1, 0, 0}))
	require.True(t, apart.Empty())
}

func TestBox_IntersectDegenerate(t *testing.T) {
	slab := NewBox([]int{0, 0, 0}, []int{7, 7, 7}).Collapse(2, 0)
	other := NewBox([]int{2, 2, 0}, []int{3, 3, 0}).Collapse(2, 0)
	got := slab.Intersect(other)
	require.False(t, got.Empty())
	require.True(t, got.Degenerate(2))
	require.Equal(t, 4, got.NumCells())

	shifted := NewBox([]int{2, 2, 0}, []int{3, 3, 0}).Collapse(2, 1)
	require.False(t, slab.Intersects(shifted))
}

func TestBox_CellIndex(t *testing.T) {
	b := NewBox([]int{2, 3, 4}, []int{5, 6, 7})
	require.Equal(t, 0, b.CellIndex([3]int{2, 3, 4}))
	require.Equal(t, 1, b.CellIndex([3]int{3, 3, 4}))
	require.Equal(t, 4, b.CellIndex([3]int{2, 4, 4}))
	require.Equal(t, 16, b.CellIndex([3]int{2, 3, 5}))
	require.Equal(t, -1, b.CellIndex([3]int{6, 3, 4}))

	var visited []int
	b.ForEachCell(func(ijk [3]int) {
		visited = append(visited, b.CellIndex(ijk))
	})
	require.Len(t, visited, b.NumCells())
	for i, v := range visited {
		require.Equal(t, i, v)
	}
}

func TestFloorDiv(t *testing.T) {
	require.Equal(t, 1, floorDiv(3, 2))
	require.Equal(t, -2, floorDiv(-3, 2))
	require.Equal(t, -1, floorDiv(-1, 4))
	require.Equal(t, 0, floorDiv(0, 4))
}
