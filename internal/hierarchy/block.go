package hierarchy

// Cell visibility values stored in Block.Blank.
const (
	Visible uint8 = 0
	Hidden  uint8 = 1
)

// Bounds is an axis-aligned physical bounding box.
type Bounds struct {
	Min [3]float64
	Max [3]float64
}

// Mid returns the midpoint along axis a.
func (b Bounds) Mid(a int) float64 {
	return b.Min[a] + (b.Max[a]-b.Min[a])/2
}

// Union grows b to cover o.
func (b Bounds) Union(o Bounds) Bounds {
	for a := 0; a < 3; a++ {
		b.Min[a] = min(b.Min[a], o.Min[a])
		b.Max[a] = max(b.Max[a], o.Max[a])
	}
	return b
}

// Block is one rectangular patch of cells at a refinement level.
type Block struct {
	Level int
	Index int // position within the level
	Flat  int // composite index across the hierarchy

	Box     Box
	Origin  [3]float64
	Spacing [3]float64

	CellData  map[string]*Array
	PointData map[string]*Array

	// Blank holds one Visible/Hidden entry per cell once blanking has run.
	Blank []uint8
}

// PointDims returns the grid dimensions in points.
func (b *Block) PointDims() [3]int {
	return b.Box.PointDims()
}

// NumCells returns the number of cells in the block.
func (b *Block) NumCells() int {
	return b.Box.NumCells()
}

// Bounds returns the physical extent of the block.
func (b *Block) Bounds() Bounds {
	dims := b.PointDims()
	var out Bounds
	for a := 0; a < 3; a++ {
		out.Min[a] = b.Origin[a]
		out.Max[a] = b.Origin[a] + float64(dims[a]-1)*b.Spacing[a]
	}
	return out
}

// HasData reports whether any cell or point field is attached.
func (b *Block) HasData() bool {
	return len(b.CellData) > 0 || len(b.PointData) > 0
}

// HiddenCells returns the number of cells marked Hidden.
func (b *Block) HiddenCells() int {
	n := 0
	for _, v := range b.Blank {
		if v == Hidden {
			n++
		}
	}
	return n
}

// Clone returns a structural copy: geometry is copied, field arrays are
// shared with the original.
func (b *Block) Clone() *Block {
	c := *b
	c.CellData = cloneFields(b.CellData)
	c.PointData = cloneFields(b.PointData)
	if b.Blank != nil {
		c.Blank = append([]uint8(nil), b.Blank...)
	}
	return &c
}

// Metadata returns a copy of the block stripped of field data and blanking.
func (b *Block) Metadata() *Block {
	c := *b
	c.CellData = nil
	c.PointData = nil
	c.Blank = nil
	return &c
}

// SetCellField attaches a cell-centered array.
func (b *Block) SetCellField(a *Array) {
	if b.CellData == nil {
		b.CellData = make(map[string]*Array)
	}
	b.CellData[a.Name] = a
}

func cloneFields(in map[string]*Array) map[string]*Array {
	if in == nil {
		return nil
	}
	out := make(map[string]*Array, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
