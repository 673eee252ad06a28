package slice

import (
	"context"
	"fmt"
	"sync"

	"github.com/scigolib/amr/internal/hierarchy"
	"github.com/scigolib/amr/internal/utils"
)

func cellValue(field, level int, ijk [3]int) float64 {
	return float64(field*1000000+level*100000) + float64(ijk[0]+100*ijk[1]+10000*ijk[2])
}

// threeLevel: level 0 one 8^3 block at spacing 1; level 1 blocks 0..3 and
// 8..15 at spacing 0.5; level 2 one block 16..19 at spacing 0.25.
func threeLevel() *hierarchy.Hierarchy {
	return hierarchy.New([3]float64{}, hierarchy.XYZGrid, []hierarchy.LevelSpec{
		{
			Spacing:         [3]float64{1, 1, 1},
			RefinementRatio: 2,
			Boxes:           []hierarchy.Box{hierarchy.NewBox([]int{0, 0, 0}, []int{7, 7, 7})},
		},
		{
			Spacing:         [3]float64{0.5, 0.5, 0.5},
			RefinementRatio: 2,
			Boxes: []hierarchy.Box{
				hierarchy.NewBox([]int{0, 0, 0}, []int{3, 3, 3}),
				hierarchy.NewBox([]int{8, 8, 8}, []int{15, 15, 15}),
			},
		},
		{
			Spacing: [3]float64{0.25, 0.25, 0.25},
			Boxes:   []hierarchy.Box{hierarchy.NewBox([]int{16, 16, 16}, []int{19, 19, 19})},
		},
	})
}

// memSource serves blocks of h with cellValue data.
type memSource struct {
	h      *hierarchy.Hierarchy
	fields []string

	fail  map[int]error
	shift map[int][3]float64

	mu    sync.Mutex
	reads []int
}

func newMemSource(h *hierarchy.Hierarchy) *memSource {
	return &memSource{h: h, fields: []string{"density", "pressure"}}
}

func (s *memSource) Hierarchy() *hierarchy.Hierarchy { return s.h }

func (s *memSource) VariableNames() []string { return s.fields }

func (s *memSource) ReadBlock(_ context.Context, flat int, fields []string) (*hierarchy.Block, error) {
	s.mu.Lock()
	s.reads = append(s.reads, flat)
	s.mu.Unlock()

	if err := s.fail[flat]; err != nil {
		return nil, utils.BlockError(utils.KindIO, flat, "", err)
	}
	b := s.h.Block(flat).Metadata()
	for a, d := range s.shift[flat] {
		b.Origin[a] += d
	}
	for _, name := range fields {
		f := -1
		for i, v := range s.fields {
			if v == name {
				f = i
			}
		}
		if f < 0 {
			return nil, utils.ConfigError("unknown field %q", name)
		}
		vals := make([]float64, 0, b.NumCells())
		b.Box.ForEachCell(func(ijk [3]int) {
			vals = append(vals, cellValue(f, b.Level, ijk))
		})
		b.SetCellField(hierarchy.NewFloat64Array(name, 1, vals))
	}
	return b, nil
}

func (s *memSource) Reads() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.reads...)
}

var errDisk = fmt.Errorf("disk on fire")
