package slice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/amr/internal/comm"
	"github.com/scigolib/amr/internal/hierarchy"
)

// splitDomain: one level of two blocks given by their boxes.
func splitDomain(a, b hierarchy.Box) *hierarchy.Hierarchy {
	return hierarchy.New([3]float64{}, hierarchy.XYZGrid, []hierarchy.LevelSpec{{
		Spacing: [3]float64{1, 1, 1},
		Boxes:   []hierarchy.Box{a, b},
	}})
}

func runSingle(src Source, cfg Config) (*Result, error) {
	e, err := New(cfg, src, nil)
	if err != nil {
		return nil, err
	}
	return e.Run(context.Background())
}

func visibleCells(h *hierarchy.Hierarchy, hidden []int) int {
	n := 0
	for flat, k := range hidden {
		n += h.Block(flat).NumCells() - k
	}
	return n
}

func TestRun_SharedFaceOnPlane(t *testing.T) {
	h := splitDomain(
		hierarchy.NewBox([]int{0, 0, 0}, []int{7, 7, 3}),
		hierarchy.NewBox([]int{0, 0, 4}, []int{7, 7, 7}),
	)
	src := newMemSource(h)
	res, err := runSingle(src, Config{Normal: NormalZ, MaxLevel: -1})
	require.NoError(t, err)

	assert.Equal(t, 4.0, res.Offset)
	assert.Equal(t, []int{0}, res.Selected)
	assert.Equal(t, []int{1}, res.Coincident)
	assert.Equal(t, []int{0}, src.Reads(), "the covered block is not fetched")

	out := res.Hierarchy
	require.Equal(t, 1, out.NumBlocks())
	require.NoError(t, out.Validate())
	assert.Equal(t, 64, visibleCells(out, res.Hidden))

	// The plane is the upper face of block 0, so its top layer donates.
	b := out.Block(0)
	d := b.CellData["density"]
	require.NotNil(t, d)
	assert.Equal(t, cellValue(0, 0, [3]int{0, 0, 3}), d.Value(b.Box.CellIndex([3]int{0, 0, 0}), 0))
	assert.Equal(t, cellValue(0, 0, [3]int{7, 7, 3}), d.Value(b.Box.CellIndex([3]int{7, 7, 0}), 0))
}

func TestRun_SharedFaceOnPlaneMultiRank(t *testing.T) {
	h := splitDomain(
		hierarchy.NewBox([]int{0, 0, 0}, []int{7, 7, 3}),
		hierarchy.NewBox([]int{0, 0, 4}, []int{7, 7, 7}),
	)
	g := comm.NewGroup(2)
	results := make([]*Result, 2)
	err := g.Run(context.Background(), func(ctx context.Context, c comm.Communicator) error {
		e, err := New(Config{Normal: NormalZ, MaxLevel: -1}, newMemSource(h), c)
		if err != nil {
			return err
		}
		results[c.Rank()], err = e.Run(ctx)
		return err
	})
	require.NoError(t, err)

	total := 0
	for _, res := range results {
		require.Equal(t, 1, res.Hierarchy.NumBlocks())
		total += visibleCells(res.Hierarchy, res.Hidden)
	}
	assert.Equal(t, 64, total, "each plane cell visible on exactly one rank")
}

func TestRun_PartiallyCoincidentCuts(t *testing.T) {
	h := splitDomain(
		hierarchy.NewBox([]int{0, 0, 0}, []int{7, 7, 3}),
		hierarchy.NewBox([]int{4, 0, 4}, []int{11, 7, 7}),
	)
	res, err := runSingle(newMemSource(h), Config{Normal: NormalZ, MaxLevel: -1})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, res.Selected)
	assert.Empty(t, res.Coincident)
	assert.Equal(t, []int{0, 32}, res.Hidden)
	assert.Equal(t, 12*8, visibleCells(res.Hierarchy, res.Hidden))

	later := res.Hierarchy.Block(1)
	assert.Equal(t, hierarchy.Hidden, later.Blank[later.Box.CellIndex([3]int{7, 3, 0})])
	assert.Equal(t, hierarchy.Visible, later.Blank[later.Box.CellIndex([3]int{8, 3, 0})])
}

func TestDropCoincident(t *testing.T) {
	h := hierarchy.New([3]float64{}, hierarchy.XYZGrid, []hierarchy.LevelSpec{
		{
			Spacing:         [3]float64{1, 1, 1},
			RefinementRatio: 2,
			Boxes: []hierarchy.Box{
				hierarchy.NewBox([]int{0, 0, 0}, []int{3, 7, 3}),
				hierarchy.NewBox([]int{4, 0, 0}, []int{7, 7, 3}),
				hierarchy.NewBox([]int{0, 0, 4}, []int{7, 7, 7}),
			},
		},
		{
			Spacing: [3]float64{0.5, 0.5, 0.5},
			Boxes: []hierarchy.Box{
				hierarchy.NewBox([]int{0, 0, 0}, []int{7, 7, 7}),
				hierarchy.NewBox([]int{0, 0, 8}, []int{7, 7, 15}),
			},
		},
	})

	// Block 2 is covered only by the union of blocks 0 and 1.
	kept, dropped := dropCoincident(h, []int{0, 1, 2, 3, 4}, 2)
	assert.Equal(t, []int{0, 1, 3}, kept)
	assert.Equal(t, []int{2, 4}, dropped)

	kept, dropped = dropCoincident(h, []int{0, 1, 3}, 1)
	assert.Equal(t, []int{0, 1, 3}, kept)
	assert.Empty(t, dropped)
}
