package core

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/scigolib/amr/internal/hierarchy"
	"github.com/scigolib/amr/internal/utils"
)

// HeaderFile is the name of the global header under a plotfile root.
const HeaderFile = "Header"

// RealBox is a physical extent recorded in the global header.
type RealBox struct {
	Lo []float64
	Hi []float64
}

// LevelInfo is the per-level section that closes the global header.
type LevelInfo struct {
	Level    int
	NumGrids int
	Time     float64
	Steps    int
	Grids    []RealBox

	LevelPrefix    string // e.g. "Level_0"
	MultiFabPrefix string // e.g. "Cell"
}

// HeaderPath returns the level header path relative to the plotfile root.
func (li *LevelInfo) HeaderPath() string {
	return path.Join(li.LevelPrefix, li.MultiFabPrefix+"_H")
}

// PlotfileHeader is the parsed global header of a plotfile.
type PlotfileHeader struct {
	Version       string
	VariableNames []string
	Dim           int
	Time          float64
	FinestLevel   int

	ProbLo []float64
	ProbHi []float64

	RefinementRatios []int           // one per level below the finest
	Domains          []hierarchy.Box // problem domain of each level
	DomainTypes      [][]int         // index type of each level's domain
	LevelSteps       []int
	CellSizes        [][]float64 // Dim entries per level
	CoordSys         int
	MagicZero        int

	Levels []LevelInfo
}

// NumLevels returns FinestLevel+1.
func (h *PlotfileHeader) NumLevels() int {
	return h.FinestLevel + 1
}

// FieldIndex returns the column of a variable, or -1 when it was never
// declared.
func (h *PlotfileHeader) FieldIndex(name string) int {
	for i, v := range h.VariableNames {
		if v == name {
			return i
		}
	}
	return -1
}

// ParseHeader parses a global plotfile header. Any malformed or missing
// token is a FormatError; no partial header is returned.
func ParseHeader(r io.Reader) (*PlotfileHeader, error) {
	h, err := parseHeader(newScanner(r))
	if err != nil {
		return nil, utils.WrapError(utils.KindFormat, "parsing plotfile header", err)
	}
	return h, nil
}

func parseHeader(s *scanner) (*PlotfileHeader, error) {
	h := &PlotfileHeader{}
	var err error

	if h.Version, err = s.field(); err != nil || strings.TrimSpace(h.Version) == "" {
		return nil, fmt.Errorf("empty version string")
	}

	nvars, err := s.int()
	if err != nil {
		return nil, err
	}
	if nvars < 0 {
		return nil, fmt.Errorf("negative variable count %d", nvars)
	}
	h.VariableNames = make([]string, nvars)
	for i := range h.VariableNames {
		if h.VariableNames[i], err = s.field(); err != nil {
			return nil, err
		}
	}

	if h.Dim, err = s.int(); err != nil {
		return nil, err
	}
	if h.Dim < 1 || h.Dim > 3 {
		return nil, fmt.Errorf("unsupported dimension %d", h.Dim)
	}
	if h.Time, err = s.float(); err != nil {
		return nil, err
	}
	if h.FinestLevel, err = s.int(); err != nil {
		return nil, err
	}
	if h.FinestLevel < 0 {
		return nil, fmt.Errorf("negative finest level %d", h.FinestLevel)
	}
	nlev := h.FinestLevel + 1

	if h.ProbLo, err = s.floats(h.Dim); err != nil {
		return nil, err
	}
	if h.ProbHi, err = s.floats(h.Dim); err != nil {
		return nil, err
	}
	if h.RefinementRatios, err = s.ints(h.FinestLevel); err != nil {
		return nil, err
	}
	for l, r := range h.RefinementRatios {
		if r < 1 {
			return nil, fmt.Errorf("refinement ratio %d at level %d", r, l)
		}
	}

	h.Domains = make([]hierarchy.Box, nlev)
	h.DomainTypes = make([][]int, nlev)
	for l := 0; l < nlev; l++ {
		lo, hi, typ, err := s.boxTriple(h.Dim)
		if err != nil {
			return nil, fmt.Errorf("level %d domain: %w", l, err)
		}
		h.Domains[l] = hierarchy.NewBox(lo, hi)
		h.DomainTypes[l] = typ
	}

	if h.LevelSteps, err = s.ints(nlev); err != nil {
		return nil, err
	}
	h.CellSizes = make([][]float64, nlev)
	for l := range h.CellSizes {
		if h.CellSizes[l], err = s.floats(h.Dim); err != nil {
			return nil, err
		}
	}
	if h.CoordSys, err = s.int(); err != nil {
		return nil, err
	}
	if h.MagicZero, err = s.int(); err != nil {
		return nil, err
	}

	h.Levels = make([]LevelInfo, nlev)
	for l := range h.Levels {
		if err := parseLevelInfo(s, h.Dim, &h.Levels[l]); err != nil {
			return nil, fmt.Errorf("level %d: %w", l, err)
		}
		if h.Levels[l].Level != l {
			return nil, fmt.Errorf("level section %d labelled %d", l, h.Levels[l].Level)
		}
	}
	return h, nil
}

func parseLevelInfo(s *scanner, dim int, li *LevelInfo) error {
	var err error
	if li.Level, err = s.int(); err != nil {
		return err
	}
	if li.NumGrids, err = s.int(); err != nil {
		return err
	}
	if li.NumGrids < 0 {
		return fmt.Errorf("negative grid count %d", li.NumGrids)
	}
	if li.Time, err = s.float(); err != nil {
		return err
	}
	if li.Steps, err = s.int(); err != nil {
		return err
	}

	li.Grids = make([]RealBox, li.NumGrids)
	for g := range li.Grids {
		rb := RealBox{Lo: make([]float64, dim), Hi: make([]float64, dim)}
		for a := 0; a < dim; a++ {
			if rb.Lo[a], err = s.float(); err != nil {
				return err
			}
			if rb.Hi[a], err = s.float(); err != nil {
				return err
			}
		}
		li.Grids[g] = rb
	}

	prefix, err := s.field()
	if err != nil {
		return err
	}
	slash := strings.LastIndexByte(prefix, '/')
	if slash <= 0 || slash == len(prefix)-1 {
		return fmt.Errorf("malformed level path %q", prefix)
	}
	li.LevelPrefix, li.MultiFabPrefix = prefix[:slash], prefix[slash+1:]
	return nil
}

// LevelSpacing returns level l's cell size padded to three axes.
func (h *PlotfileHeader) LevelSpacing(l int) [3]float64 {
	var sp [3]float64
	copy(sp[:], h.CellSizes[l])
	return sp
}

// Origin returns the problem-domain lower corner padded to three axes.
func (h *PlotfileHeader) Origin() [3]float64 {
	var o [3]float64
	copy(o[:], h.ProbLo)
	return o
}
