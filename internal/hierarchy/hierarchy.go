package hierarchy

import (
	"fmt"
	"math"
	"sync"

	"github.com/scigolib/amr/internal/utils"
)

// Orientation describes which physical axes a hierarchy spans.
type Orientation uint8

// Grid orientations.
const (
	XLine Orientation = iota + 1
	YLine
	ZLine
	XYPlane
	YZPlane
	XZPlane
	XYZGrid
)

var orientationNames = map[Orientation]string{
	XLine: "x-line", YLine: "y-line", ZLine: "z-line",
	XYPlane: "xy-plane", YZPlane: "yz-plane", XZPlane: "xz-plane",
	XYZGrid: "xyz-grid",
}

// String returns the orientation name.
func (o Orientation) String() string {
	if s, ok := orientationNames[o]; ok {
		return s
	}
	return fmt.Sprintf("orientation(%d)", o)
}

// OrientationForDim returns the orientation of a plotfile of dimension d.
func OrientationForDim(d int) Orientation {
	switch d {
	case 1:
		return XLine
	case 2:
		return XYPlane
	case 3:
		return XYZGrid
	}
	panic(fmt.Sprintf("hierarchy: dimension %d", d))
}

// PlaneOrientation returns the orientation of a plane normal to axis a.
func PlaneOrientation(a int) Orientation {
	switch a {
	case 0:
		return YZPlane
	case 1:
		return XZPlane
	case 2:
		return XYPlane
	}
	panic(fmt.Sprintf("hierarchy: axis %d", a))
}

// LevelSpec describes one level when building a Hierarchy.
type LevelSpec struct {
	Spacing         [3]float64
	RefinementRatio int // to the next finer level; 0 derives it from spacing
	Boxes           []Box
}

// Level is one refinement tier.
type Level struct {
	Spacing         [3]float64
	RefinementRatio int
	Blocks          []*Block
}

// Hierarchy is an ordered set of levels with composite block numbering.
// Structure is fixed at construction; blocks may later receive field data
// and blanking masks.
type Hierarchy struct {
	Origin      [3]float64
	Orientation Orientation

	levels  []*Level
	offsets []int // offsets[l] is the flat index of level l's first block
	blocks  []*Block
	bounds  Bounds

	adjOnce  sync.Once
	children [][]int
	parents  [][]int
}

// New builds a hierarchy. Flat indices are assigned level-major, then in
// the order boxes appear within each level.
func New(origin [3]float64, orientation Orientation, specs []LevelSpec) *Hierarchy {
	h := &Hierarchy{
		Origin:      origin,
		Orientation: orientation,
		levels:      make([]*Level, len(specs)),
		offsets:     make([]int, len(specs)+1),
	}

	first := true
	h.bounds = Bounds{Min: origin, Max: origin}
	for l, spec := range specs {
		lvl := &Level{
			Spacing:         spec.Spacing,
			RefinementRatio: spec.RefinementRatio,
			Blocks:          make([]*Block, len(spec.Boxes)),
		}
		h.offsets[l] = len(h.blocks)
		for i, box := range spec.Boxes {
			blk := &Block{
				Level:   l,
				Index:   i,
				Flat:    len(h.blocks),
				Box:     box,
				Spacing: spec.Spacing,
			}
			for a := 0; a < 3; a++ {
				blk.Origin[a] = origin[a]
				if a < box.Dim {
					blk.Origin[a] += float64(box.Lo[a]) * spec.Spacing[a]
				}
			}
			if first {
				h.bounds = blk.Bounds()
				first = false
			} else {
				h.bounds = h.bounds.Union(blk.Bounds())
			}
			lvl.Blocks[i] = blk
			h.blocks = append(h.blocks, blk)
		}
		h.levels[l] = lvl
	}
	h.offsets[len(specs)] = len(h.blocks)
	return h
}

// NumLevels returns the number of levels.
func (h *Hierarchy) NumLevels() int { return len(h.levels) }

// NumBlocks returns the total number of blocks.
func (h *Hierarchy) NumBlocks() int { return len(h.blocks) }

// Bounds returns the global bounding box over all levels.
func (h *Hierarchy) Bounds() Bounds { return h.bounds }

// Level returns level l.
func (h *Hierarchy) Level(l int) *Level {
	h.checkLevel(l)
	return h.levels[l]
}

// NumBlocksAt returns the block count of level l.
func (h *Hierarchy) NumBlocksAt(l int) int {
	h.checkLevel(l)
	return h.offsets[l+1] - h.offsets[l]
}

// FlatIndex returns the composite index of block idx of level l.
func (h *Hierarchy) FlatIndex(l, idx int) int {
	h.checkLevel(l)
	if idx < 0 || idx >= h.NumBlocksAt(l) {
		panic(fmt.Sprintf("hierarchy: block %d out of range at level %d (%d blocks)", idx, l, h.NumBlocksAt(l)))
	}
	return h.offsets[l] + idx
}

// LevelAndIndex inverts FlatIndex.
func (h *Hierarchy) LevelAndIndex(flat int) (level, idx int) {
	h.checkFlat(flat)
	b := h.blocks[flat]
	return b.Level, b.Index
}

// Block returns the block with composite index flat.
func (h *Hierarchy) Block(flat int) *Block {
	h.checkFlat(flat)
	return h.blocks[flat]
}

// RefinementRatio returns the ratio between level l and l+1. A missing
// ratio is derived from the level spacings; the finest level reports 1.
func (h *Hierarchy) RefinementRatio(l int) int {
	h.checkLevel(l)
	if l == len(h.levels)-1 {
		return 1
	}
	if r := h.levels[l].RefinementRatio; r >= 1 {
		return r
	}
	coarse, fine := h.levels[l].Spacing[0], h.levels[l+1].Spacing[0]
	if fine <= 0 {
		return 1
	}
	return max(1, int(math.Round(coarse/fine)))
}

// Children returns the flat indices of blocks on the next finer level that
// overlap block flat.
func (h *Hierarchy) Children(flat int) []int {
	h.checkFlat(flat)
	h.adjOnce.Do(h.buildAdjacency)
	return h.children[flat]
}

// Parents returns the flat indices of blocks on the next coarser level that
// block flat overlaps.
func (h *Hierarchy) Parents(flat int) []int {
	h.checkFlat(flat)
	h.adjOnce.Do(h.buildAdjacency)
	return h.parents[flat]
}

func (h *Hierarchy) buildAdjacency() {
	h.children = make([][]int, len(h.blocks))
	h.parents = make([][]int, len(h.blocks))
	for l := 0; l+1 < len(h.levels); l++ {
		r := h.RefinementRatio(l)
		for _, fine := range h.levels[l+1].Blocks {
			coarse := fine.Box.Coarsen(r)
			for _, parent := range h.levels[l].Blocks {
				if parent.Box.Intersects(coarse) {
					h.children[parent.Flat] = append(h.children[parent.Flat], fine.Flat)
					h.parents[fine.Flat] = append(h.parents[fine.Flat], parent.Flat)
				}
			}
		}
	}
}

// Validate checks that no two blocks of a level cover the same cell.
func (h *Hierarchy) Validate() error {
	for l, lvl := range h.levels {
		for i := 0; i < len(lvl.Blocks); i++ {
			for j := i + 1; j < len(lvl.Blocks); j++ {
				if lvl.Blocks[i].Box.Intersects(lvl.Blocks[j].Box) {
					return utils.FormatError("level %d: blocks %d %v and %d %v overlap",
						l, i, lvl.Blocks[i].Box, j, lvl.Blocks[j].Box)
				}
			}
		}
	}
	return nil
}

func (h *Hierarchy) checkLevel(l int) {
	if l < 0 || l >= len(h.levels) {
		panic(fmt.Sprintf("hierarchy: level %d out of range [0,%d)", l, len(h.levels)))
	}
}

func (h *Hierarchy) checkFlat(flat int) {
	if flat < 0 || flat >= len(h.blocks) {
		panic(fmt.Sprintf("hierarchy: flat index %d out of range [0,%d)", flat, len(h.blocks)))
	}
}
