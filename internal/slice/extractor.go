// Package slice cuts an axis-aligned plane through a 3D AMR hierarchy and
// returns the result as a 2D hierarchy whose cells take their values from
// the 3D cells containing their centroids.
//
// Extraction is collective when run over a multi-rank communicator: every
// rank must call Run, and Run ends with a barrier.
package slice

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/golang/glog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scigolib/amr/internal/comm"
	"github.com/scigolib/amr/internal/hierarchy"
	"github.com/scigolib/amr/internal/ownership"
)

// State is the extractor's progress through one Run.
type State int

// Extractor states, in order.
const (
	Uninitialized State = iota
	MetadataReady
	BlocksLoaded
	Sliced
	Done
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case MetadataReady:
		return "MetadataReady"
	case BlocksLoaded:
		return "BlocksLoaded"
	case Sliced:
		return "Sliced"
	case Done:
		return "Done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Source supplies hierarchy metadata and block data.
type Source interface {
	Hierarchy() *hierarchy.Hierarchy
	VariableNames() []string
	// ReadBlock returns block flat with the named cell fields attached.
	ReadBlock(ctx context.Context, flat int, fields []string) (*hierarchy.Block, error)
}

// OrphanCellWarning reports output cells that found no donor. It is not
// fatal; the cells keep zero values.
type OrphanCellWarning struct {
	Cells  int
	Blocks int
}

func (w *OrphanCellWarning) Error() string {
	return fmt.Sprintf("slice: %d orphan cells in %d blocks", w.Cells, w.Blocks)
}

// Result is the outcome of one extraction.
type Result struct {
	// Hierarchy is the 2D slice, or the input itself when Passthrough.
	Hierarchy   *hierarchy.Hierarchy
	Passthrough bool

	Axis   int
	Offset float64

	// Selected lists the emitted source blocks by flat index; Prefetched
	// the deeper blocks loaded only to warm the source.
	Selected   []int
	Prefetched []int
	// Coincident lists intersecting blocks left out because earlier blocks
	// of the same level already cover their cut.
	Coincident []int

	// Failures maps source flat index to the fetch error of blocks emitted
	// without data.
	Failures map[int]error

	Ownership ownership.Map
	Hidden    []int

	Orphans *OrphanCellWarning
}

// Warning returns the orphan warning, or nil when every cell had a donor.
func (r *Result) Warning() error {
	if r.Orphans == nil {
		return nil
	}
	return r.Orphans
}

// Extractor carries one slice configuration across runs. The default
// offset is computed once and reused by later runs.
type Extractor struct {
	cfg  Config
	src  Source
	comm comm.Communicator

	state     State
	offset    float64
	offsetSet bool

	// per-run
	axis       int
	maxLevel   int
	selected   []int
	prefetch   []int
	coincident []int
	loaded     map[int]*hierarchy.Block
	failures   map[int]error
}

// New validates cfg and returns an extractor over src. A nil communicator
// means a single process.
func New(cfg Config, src Source, c comm.Communicator) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c == nil {
		c = comm.Self()
	}
	e := &Extractor{cfg: cfg, src: src, comm: c}
	if cfg.Offset != nil {
		e.offset, e.offsetSet = *cfg.Offset, true
	}
	return e, nil
}

// State returns the current state.
func (e *Extractor) State() State { return e.state }

// Offset returns the plane offset and whether it has been fixed.
func (e *Extractor) Offset() (float64, bool) { return e.offset, e.offsetSet }

// SetOffset fixes the plane offset for subsequent runs.
func (e *Extractor) SetOffset(v float64) {
	e.offset, e.offsetSet = v, true
}

// Run performs a complete extraction.
func (e *Extractor) Run(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	e.state = Uninitialized
	h := e.src.Hierarchy()

	ctx, span := tracer.Start(ctx, "slice.Extractor.Run", trace.WithAttributes(
		attribute.Int("slice.normal", e.cfg.Normal),
		attribute.Int("comm.rank", e.comm.Rank()),
		attribute.Int("comm.size", e.comm.Size()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		recordSlice(ctx, time.Since(start), e.cfg.Axis(), err == nil)
	}()

	if h.Orientation != hierarchy.XYZGrid {
		e.state = Done
		span.SetAttributes(attribute.Bool("slice.passthrough", true))
		return &Result{Hierarchy: h, Passthrough: true, Axis: e.cfg.Axis()}, nil
	}

	e.plan(h)
	span.SetAttributes(
		attribute.Float64("slice.offset", e.offset),
		attribute.Int("slice.selected", len(e.selected)),
		attribute.Int("slice.prefetched", len(e.prefetch)),
	)

	if err := e.load(ctx); err != nil {
		return nil, err
	}

	res, active := e.build(h)
	m, err := ownership.Resolve(ctx, e.comm, res.Hierarchy, active)
	if err != nil {
		return nil, err
	}
	res.Ownership = m
	res.Hidden = ownership.Blank(res.Hierarchy, m, e.comm.Rank())
	e.state = Sliced

	if err := e.comm.Barrier(ctx); err != nil {
		return nil, err
	}
	e.state = Done
	e.release()
	return res, nil
}

// plan fixes the plane and selects intersecting blocks from metadata only.
func (e *Extractor) plan(h *hierarchy.Hierarchy) {
	e.axis = e.cfg.Axis()
	if !e.offsetSet {
		e.offset, e.offsetSet = h.Bounds().Mid(e.axis), true
		glog.Infof("slice: plane %s=%g (bounds midpoint)", axisName(e.axis), e.offset)
	}

	finest := h.NumLevels() - 1
	e.maxLevel = e.cfg.MaxLevel
	if e.maxLevel < 0 || e.maxLevel > finest {
		e.maxLevel = finest
	}
	loadLevel := e.maxLevel
	if e.cfg.Prefetch && loadLevel < finest {
		loadLevel++
	}

	e.selected, e.prefetch, e.coincident = nil, nil, nil
	normal := hierarchy.AxisNormal(e.axis)
	it := h.BlocksAtOrBelow(loadLevel)
	for it.Next() {
		b := it.Block()
		if !hierarchy.BoxIntersectsPlane(b.Bounds(), normal, e.offset) {
			continue
		}
		if b.Level <= e.maxLevel {
			e.selected = append(e.selected, b.Flat)
		} else {
			e.prefetch = append(e.prefetch, b.Flat)
		}
	}
	e.selected, e.coincident = dropCoincident(h, e.selected, e.axis)
	if len(e.coincident) > 0 {
		glog.V(1).Infof("slice: blocks %v coincide with earlier blocks on the plane", e.coincident)
	}
	e.state = MetadataReady
}

// load fetches the blocks this rank is responsible for. A failed block
// is recorded and later emitted without data.
func (e *Extractor) load(ctx context.Context) error {
	fields := e.cfg.Fields
	if fields == nil {
		fields = e.src.VariableNames()
	}
	rank, size := e.comm.Rank(), e.comm.Size()
	e.loaded = make(map[int]*hierarchy.Block)
	e.failures = make(map[int]error)

	fetch := func(flat int) (*hierarchy.Block, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return e.src.ReadBlock(ctx, flat, fields)
	}

	for _, flat := range e.selected {
		if !e.cfg.responsible(flat, rank, size) {
			continue
		}
		b, err := fetch(flat)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			glog.Warningf("slice: block %d emitted without data: %v", flat, err)
			blockFailures.Inc()
			e.failures[flat] = err
			continue
		}
		e.loaded[flat] = b
	}
	for _, flat := range e.prefetch {
		if !e.cfg.responsible(flat, rank, size) {
			continue
		}
		if _, err := fetch(flat); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.V(1).Infof("slice: prefetch of block %d failed: %v", flat, err)
		}
	}
	e.state = BlocksLoaded
	return nil
}

// build assembles the 2D hierarchy and donates data. It returns the output
// flat indices this rank holds data for.
func (e *Extractor) build(h *hierarchy.Hierarchy) (*Result, []int) {
	byLevel := make([][]int, e.maxLevel+1)
	for _, flat := range e.selected {
		l, _ := h.LevelAndIndex(flat)
		byLevel[l] = append(byLevel[l], flat)
	}
	top := len(byLevel)
	for top > 0 && len(byLevel[top-1]) == 0 {
		top--
	}
	byLevel = byLevel[:top]

	specs := make([]hierarchy.LevelSpec, len(byLevel))
	for l, flats := range byLevel {
		specs[l] = hierarchy.LevelSpec{
			Spacing:         h.Level(l).Spacing,
			RefinementRatio: h.RefinementRatio(l),
		}
		for _, flat := range flats {
			specs[l].Boxes = append(specs[l].Boxes, cutBlock(h.Block(flat), e.axis))
		}
	}

	origin := h.Origin
	origin[e.axis] = e.offset
	out := hierarchy.New(origin, hierarchy.PlaneOrientation(e.axis), specs)

	fields := e.cfg.Fields
	if fields == nil {
		fields = e.src.VariableNames()
	}

	res := &Result{
		Hierarchy:  out,
		Axis:       e.axis,
		Offset:     e.offset,
		Prefetched: e.prefetch,
		Coincident: e.coincident,
		Failures:   e.failures,
	}
	var active []int
	orphans, orphanBlocks := 0, 0
	for l, flats := range byLevel {
		for i, flat := range flats {
			res.Selected = append(res.Selected, flat)
			src, ok := e.loaded[flat]
			if !ok {
				continue
			}
			dst := out.Block(out.FlatIndex(l, i))
			if n := donate(src, dst, e.axis, e.offset, fields); n > 0 {
				orphans += n
				orphanBlocks++
			}
			active = append(active, dst.Flat)
		}
	}
	sort.Ints(res.Selected)

	if orphans > 0 {
		res.Orphans = &OrphanCellWarning{Cells: orphans, Blocks: orphanBlocks}
		orphanCells.Add(float64(orphans))
		glog.Warning(res.Orphans.Error())
	}
	return res, active
}

func (e *Extractor) release() {
	e.loaded = nil
	e.failures = nil
}
