package core

import (
	"fmt"
	"io"

	"github.com/scigolib/amr/internal/hierarchy"
	"github.com/scigolib/amr/internal/utils"
)

// LevelVersion tags the legacy sub-format of a per-level header.
type LevelVersion int

// Per-level header versions.
const (
	LevelVersionV1            LevelVersion = 1 // per-FAB min/max tables
	NoFabHeaderV1             LevelVersion = 2 // no min/max data
	NoFabHeaderMinMaxV1       LevelVersion = 3 // per-FAB min/max tables
	NoFabHeaderFAMinMaxV1     LevelVersion = 4 // per-component whole-array min/max
	lastSupportedLevelVersion              = NoFabHeaderFAMinMaxV1
)

// MinMaxKind identifies which range statistics a level header carries.
type MinMaxKind uint8

// Range statistic layouts.
const (
	MinMaxNone MinMaxKind = iota
	MinMaxPerFAB
	MinMaxPerComponent
)

// MinMaxKind returns the statistics layout implied by the version tag.
func (v LevelVersion) MinMaxKind() MinMaxKind {
	switch v {
	case LevelVersionV1, NoFabHeaderMinMaxV1:
		return MinMaxPerFAB
	case NoFabHeaderFAMinMaxV1:
		return MinMaxPerComponent
	}
	return MinMaxNone
}

// FabOnDisk locates one block's payload.
type FabOnDisk struct {
	FileName string
	Offset   int64
}

// LevelHeader is the parsed, immutable per-level header. The version tag
// and the statistics it selects are kept together.
type LevelHeader struct {
	Version       LevelVersion
	HowStored     int
	NumComponents int
	NumGhost      int
	Boxes         []hierarchy.Box
	Fabs          []FabOnDisk

	Stats MinMaxKind
	// MinPerFAB[b][c] / MaxPerFAB[b][c] are set for MinMaxPerFAB.
	MinPerFAB [][]float64
	MaxPerFAB [][]float64
	// MinPerComponent[c] / MaxPerComponent[c] are set for MinMaxPerComponent.
	MinPerComponent []float64
	MaxPerComponent []float64

	// Real is the trailing real-number descriptor; HasReal is false when the
	// header ends before one.
	Real    RealDescriptor
	HasReal bool
}

// Range returns the recorded min/max of component c of block b.
func (lh *LevelHeader) Range(b, c int) (lo, hi float64, ok bool) {
	switch lh.Stats {
	case MinMaxPerFAB:
		if b < len(lh.MinPerFAB) && c < len(lh.MinPerFAB[b]) {
			return lh.MinPerFAB[b][c], lh.MaxPerFAB[b][c], true
		}
	case MinMaxPerComponent:
		if c < len(lh.MinPerComponent) {
			return lh.MinPerComponent[c], lh.MaxPerComponent[c], true
		}
	}
	return 0, 0, false
}

// ParseLevelHeader parses a per-level header for a plotfile of dimension dim.
func ParseLevelHeader(r io.Reader, dim int) (*LevelHeader, error) {
	lh, err := parseLevelHeader(newScanner(r), dim)
	if err != nil {
		return nil, utils.WrapError(utils.KindFormat, "parsing level header", err)
	}
	return lh, nil
}

func parseLevelHeader(s *scanner, dim int) (*LevelHeader, error) {
	lh := &LevelHeader{}
	v, err := s.int()
	if err != nil {
		return nil, err
	}
	lh.Version = LevelVersion(v)
	if lh.Version < LevelVersionV1 || lh.Version > lastSupportedLevelVersion {
		return nil, fmt.Errorf("unsupported level header version %d", v)
	}
	lh.Stats = lh.Version.MinMaxKind()

	if lh.HowStored, err = s.int(); err != nil {
		return nil, err
	}
	if lh.NumComponents, err = s.int(); err != nil {
		return nil, err
	}
	if lh.NumGhost, err = s.int(); err != nil {
		return nil, err
	}

	// Box array: (n hash ((lo) (hi) (type)) ... )
	if err := s.expect('('); err != nil {
		return nil, err
	}
	nboxes, err := s.int()
	if err != nil {
		return nil, err
	}
	if nboxes < 0 {
		return nil, fmt.Errorf("negative box count %d", nboxes)
	}
	if _, err := s.int(); err != nil {
		return nil, err
	}
	lh.Boxes = make([]hierarchy.Box, nboxes)
	for i := range lh.Boxes {
		lo, hi, _, err := s.boxTriple(dim)
		if err != nil {
			return nil, fmt.Errorf("box %d: %w", i, err)
		}
		lh.Boxes[i] = hierarchy.NewBox(lo, hi)
	}
	if err := s.expect(')'); err != nil {
		return nil, err
	}

	nfabs, err := s.int()
	if err != nil {
		return nil, err
	}
	if nfabs != nboxes {
		return nil, fmt.Errorf("%d FabOnDisk entries for %d boxes", nfabs, nboxes)
	}
	lh.Fabs = make([]FabOnDisk, nfabs)
	for i := range lh.Fabs {
		tag, err := s.field()
		if err != nil {
			return nil, err
		}
		if tag != "FabOnDisk:" {
			return nil, fmt.Errorf("expected FabOnDisk:, found %q", tag)
		}
		if lh.Fabs[i].FileName, err = s.field(); err != nil {
			return nil, err
		}
		off, err := s.int()
		if err != nil {
			return nil, err
		}
		if off < 0 {
			return nil, fmt.Errorf("negative FAB offset %d", off)
		}
		lh.Fabs[i].Offset = int64(off)
	}

	switch lh.Stats {
	case MinMaxPerFAB:
		if lh.MinPerFAB, err = s.fabTable(nboxes, lh.NumComponents); err != nil {
			return nil, fmt.Errorf("minimums: %w", err)
		}
		if lh.MaxPerFAB, err = s.fabTable(nboxes, lh.NumComponents); err != nil {
			return nil, fmt.Errorf("maximums: %w", err)
		}
	case MinMaxPerComponent:
		if lh.MinPerComponent, err = s.componentList(lh.NumComponents); err != nil {
			return nil, fmt.Errorf("minimums: %w", err)
		}
		if lh.MaxPerComponent, err = s.componentList(lh.NumComponents); err != nil {
			return nil, fmt.Errorf("maximums: %w", err)
		}
	}

	if _, err := s.peek(); err != nil {
		if isIOScanError(err) {
			return lh, nil
		}
		return nil, err
	}
	if lh.Real, err = s.readDescriptor(); err != nil {
		return nil, fmt.Errorf("real descriptor: %w", err)
	}
	lh.HasReal = true
	return lh, nil
}

// fabTable reads "rows,cols" followed by rows*cols comma-terminated values.
func (s *scanner) fabTable(rows, cols int) ([][]float64, error) {
	r, err := s.int()
	if err != nil {
		return nil, err
	}
	if err := s.expect(','); err != nil {
		return nil, err
	}
	c, err := s.int()
	if err != nil {
		return nil, err
	}
	if _, err := s.optional(','); err != nil {
		return nil, err
	}
	if r != rows || c != cols {
		return nil, fmt.Errorf("table is %dx%d, want %dx%d", r, c, rows, cols)
	}
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			if out[i][j], err = s.float(); err != nil {
				return nil, err
			}
			if err := s.expect(','); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// componentList reads "n," followed by n comma-terminated values.
func (s *scanner) componentList(n int) ([]float64, error) {
	got, err := s.int()
	if err != nil {
		return nil, err
	}
	if err := s.expect(','); err != nil {
		return nil, err
	}
	if got != n {
		return nil, fmt.Errorf("%d values, want %d", got, n)
	}
	out := make([]float64, n)
	for i := range out {
		if out[i], err = s.float(); err != nil {
			return nil, err
		}
		if err := s.expect(','); err != nil {
			return nil, err
		}
	}
	return out, nil
}
