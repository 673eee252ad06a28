// Package amr reads AMReX plotfiles: block-structured adaptive mesh
// refinement output made of a text Header, per-level headers and binary
// field payloads.
//
// Open parses only the headers. Field data is decoded on demand, converted
// to little-endian IEEE floats and kept in a block cache so repeated
// requests do not touch disk.
package amr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/scigolib/amr/internal/cache"
	"github.com/scigolib/amr/internal/comm"
	"github.com/scigolib/amr/internal/core"
	"github.com/scigolib/amr/internal/hierarchy"
	"github.com/scigolib/amr/internal/slice"
	"github.com/scigolib/amr/internal/utils"
)

var tracer = otel.Tracer("github.com/scigolib/amr")

var _ slice.Source = (*Reader)(nil)

// Reader is an open plotfile. It is safe for concurrent use.
type Reader struct {
	dir    string
	cfg    readerConfig
	header *core.PlotfileHeader
	levels []*core.LevelHeader
	h      *hierarchy.Hierarchy
	cache  *cache.Cache

	decode singleflight.Group

	mu     sync.Mutex
	files  map[string]dataFile
	closed bool
}

// Open parses the headers of the plotfile rooted at dir. No field data is
// read. Header problems are FormatErrors and no partial Reader is returned.
func Open(dir string, opts ...Option) (*Reader, error) {
	cfg := defaultReaderConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	header, err := readGlobalHeader(dir)
	if err != nil {
		return nil, err
	}

	levels := make([]*core.LevelHeader, header.NumLevels())
	for l := range levels {
		if levels[l], err = readLevelHeader(dir, header, l); err != nil {
			return nil, err
		}
	}

	h, err := buildHierarchy(header, levels)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		dir:    dir,
		cfg:    cfg,
		header: header,
		levels: levels,
		h:      h,
		cache:  cfg.cache,
		files:  make(map[string]dataFile),
	}
	if r.cache == nil {
		r.cache = cache.New(cache.WithMaxEntries(cfg.cacheEntries))
	}

	if _, err := r.fieldColumns(cfg.fields); err != nil {
		return nil, err
	}
	for _, flat := range cfg.blocks {
		if flat < 0 || flat >= h.NumBlocks() {
			return nil, utils.ConfigError("block of interest %d outside [0,%d)", flat, h.NumBlocks())
		}
	}

	glog.Infof("amr: opened %s: %dD, %d levels, %d blocks, %d variables, t=%g",
		dir, header.Dim, h.NumLevels(), h.NumBlocks(), len(header.VariableNames), header.Time)
	return r, nil
}

func readGlobalHeader(dir string) (*core.PlotfileHeader, error) {
	name := filepath.Join(dir, core.HeaderFile)
	//nolint:gosec // G304: plotfile path is caller supplied
	f, err := os.Open(name)
	if err != nil {
		return nil, utils.WrapError(utils.KindFormat, "open plotfile header "+name, err)
	}
	defer func() { _ = f.Close() }()
	return core.ParseHeader(f)
}

func readLevelHeader(dir string, header *core.PlotfileHeader, l int) (*core.LevelHeader, error) {
	li := &header.Levels[l]
	name := filepath.Join(dir, filepath.FromSlash(li.HeaderPath()))
	//nolint:gosec // G304: path built from the plotfile header
	f, err := os.Open(name)
	if err != nil {
		return nil, utils.WrapError(utils.KindFormat, fmt.Sprintf("open level %d header %s", l, name), err)
	}
	defer func() { _ = f.Close() }()

	lh, err := core.ParseLevelHeader(f, header.Dim)
	if err != nil {
		return nil, utils.WrapError(utils.KindFormat, fmt.Sprintf("level %d", l), err)
	}
	if len(lh.Boxes) != li.NumGrids {
		return nil, utils.FormatError("level %d: header lists %d grids, level header %d boxes",
			l, li.NumGrids, len(lh.Boxes))
	}
	if lh.NumComponents != len(header.VariableNames) {
		return nil, utils.FormatError("level %d: %d components for %d variables",
			l, lh.NumComponents, len(header.VariableNames))
	}
	return lh, nil
}

func buildHierarchy(header *core.PlotfileHeader, levels []*core.LevelHeader) (*hierarchy.Hierarchy, error) {
	specs := make([]hierarchy.LevelSpec, len(levels))
	for l, lh := range levels {
		specs[l] = hierarchy.LevelSpec{
			Spacing: header.LevelSpacing(l),
			Boxes:   lh.Boxes,
		}
		if l < len(header.RefinementRatios) {
			specs[l].RefinementRatio = header.RefinementRatios[l]
		}
	}
	h := hierarchy.New(header.Origin(), hierarchy.OrientationForDim(header.Dim), specs)
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Close releases open payload files. It is safe to call Close multiple
// times.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for _, f := range r.files {
		errs = append(errs, f.Close())
	}
	r.files = nil
	return errors.Join(errs...)
}

// Dir returns the plotfile root directory.
func (r *Reader) Dir() string { return r.dir }

// Hierarchy returns the metadata-only hierarchy built from the headers.
func (r *Reader) Hierarchy() *hierarchy.Hierarchy { return r.h }

// VariableNames returns the declared variables in column order.
func (r *Reader) VariableNames() []string { return r.header.VariableNames }

// Time returns the simulation time recorded in the header.
func (r *Reader) Time() float64 { return r.header.Time }

// Header returns the parsed global header.
func (r *Reader) Header() *core.PlotfileHeader { return r.header }

// LevelHeader returns the parsed header of level l.
func (r *Reader) LevelHeader(l int) *core.LevelHeader {
	if l < 0 || l >= len(r.levels) {
		panic(fmt.Sprintf("amr: level %d out of range [0,%d)", l, len(r.levels)))
	}
	return r.levels[l]
}

// Stats returns a snapshot of cache traffic.
func (r *Reader) Stats() cache.Stats { return r.cache.Stats() }

// FieldRange returns the min/max of field name on block flat as recorded
// in the level header. ok is false when the header carries no statistics
// or the field is unknown.
func (r *Reader) FieldRange(flat int, name string) (lo, hi float64, ok bool) {
	col := r.header.FieldIndex(name)
	if col < 0 {
		return 0, 0, false
	}
	l, idx := r.h.LevelAndIndex(flat)
	return r.levels[l].Range(idx, col)
}

// fieldColumns maps names to columns; an undeclared name is a
// ConfigurationError.
func (r *Reader) fieldColumns(names []string) ([]int, error) {
	cols := make([]int, len(names))
	for i, name := range names {
		cols[i] = r.header.FieldIndex(name)
		if cols[i] < 0 {
			return nil, &utils.AMRError{
				Kind:    utils.KindConfiguration,
				Context: fmt.Sprintf("variable not declared (have %v)", r.header.VariableNames),
				Block:   utils.NoBlock,
				Field:   name,
			}
		}
	}
	return cols, nil
}

// ReadField returns field name of block flat, decoding it on first use.
// An undeclared name fails before any file is touched.
func (r *Reader) ReadField(ctx context.Context, flat int, name string) (*hierarchy.Array, error) {
	cols, err := r.fieldColumns([]string{name})
	if err != nil {
		return nil, err
	}
	blk := r.h.Block(flat)

	if a, ok := r.cache.GetField(flat, name); ok {
		if glog.V(2) {
			glog.Infof("amr: block %d field %s from cache", flat, name)
		}
		return a, nil
	}

	key := strconv.Itoa(flat) + "/" + name
	v, err, _ := r.decode.Do(key, func() (interface{}, error) {
		if a, ok := r.cache.GetField(flat, name); ok {
			return a, nil
		}
		a, err := r.decodeField(ctx, blk, cols[0], name)
		if err != nil {
			return nil, err
		}
		b := blk.Metadata()
		b.SetCellField(a)
		r.cache.Fill(flat, b)
		if glog.V(2) {
			glog.Infof("amr: block %d field %s decoded (%d values)", flat, name, a.Len())
		}
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*hierarchy.Array), nil
}

func (r *Reader) decodeField(ctx context.Context, blk *hierarchy.Block, col int, name string) (a *hierarchy.Array, err error) {
	_, span := tracer.Start(ctx, "amr.Reader.decodeField", trace.WithAttributes(
		attribute.Int("amr.block", blk.Flat),
		attribute.Int("amr.level", blk.Level),
		attribute.String("amr.field", name),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fab := r.levels[blk.Level].Fabs[blk.Index]
	li := &r.header.Levels[blk.Level]
	path := filepath.Join(r.dir, filepath.FromSlash(li.LevelPrefix), fab.FileName)

	f, err := r.file(path)
	if err != nil {
		return nil, utils.BlockError(utils.KindIO, blk.Flat, name, err)
	}
	a, err = core.ReadFABColumn(f, fab.Offset, col, name)
	if err != nil {
		return nil, utils.BlockError(utils.KindIO, blk.Flat, name, err)
	}
	if a.Len() != blk.NumCells() {
		return nil, utils.BlockError(utils.KindFormat, blk.Flat, name,
			utils.FormatError("payload has %d values for %d cells", a.Len(), blk.NumCells()))
	}
	span.SetAttributes(attribute.Int("amr.values", a.Len()))
	return a, nil
}

// file returns the open payload file at path, opening it on first use.
func (r *Reader) file(path string) (dataFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, utils.WrapError(utils.KindIO, "read", ErrClosed)
	}
	if f, ok := r.files[path]; ok {
		return f, nil
	}
	f, err := r.cfg.openFile(path)
	if err != nil {
		return nil, utils.WrapError(utils.KindIO, "open payload", err)
	}
	r.files[path] = f
	return f, nil
}

// ReadBlock returns a structural copy of block flat carrying the named
// fields. All names are checked before any decoding starts.
func (r *Reader) ReadBlock(ctx context.Context, flat int, fields []string) (*hierarchy.Block, error) {
	if _, err := r.fieldColumns(fields); err != nil {
		return nil, err
	}
	out := r.h.Block(flat).Metadata()
	for _, name := range fields {
		a, err := r.ReadField(ctx, flat, name)
		if err != nil {
			return nil, err
		}
		out.SetCellField(a)
	}
	return out, nil
}

// BatchResult holds the outcome of a multi-block read. A failed block
// does not affect the others.
type BatchResult struct {
	Blocks   map[int]*hierarchy.Block
	Failures map[int]error
}

// Err joins the per-block failures in flat order, or returns nil.
func (b *BatchResult) Err() error {
	if len(b.Failures) == 0 {
		return nil
	}
	flats := make([]int, 0, len(b.Failures))
	for flat := range b.Failures {
		flats = append(flats, flat)
	}
	sort.Ints(flats)
	errs := make([]error, len(flats))
	for i, flat := range flats {
		errs[i] = b.Failures[flat]
	}
	return errors.Join(errs...)
}

// ReadBlocks reads each block with the named fields. Per-block failures
// are collected in the result; the returned error is reserved for
// undeclared fields and cancellation.
func (r *Reader) ReadBlocks(ctx context.Context, flats []int, fields []string) (*BatchResult, error) {
	if _, err := r.fieldColumns(fields); err != nil {
		return nil, err
	}
	res := &BatchResult{
		Blocks:   make(map[int]*hierarchy.Block, len(flats)),
		Failures: make(map[int]error),
	}
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.cfg.parallelism)
	for _, flat := range flats {
		r.h.Block(flat) // out-of-range indices panic here, not in a worker
		g.Go(func() error {
			b, err := r.ReadBlock(ctx, flat, fields)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				glog.Warningf("amr: block %d: %v", flat, err)
				res.Failures[flat] = err
				return nil
			}
			res.Blocks[flat] = b
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// Update loads the configured request: the blocks of interest, or every
// block up to the maximum level, with the configured fields (all by
// default). It returns a fresh hierarchy with the loaded arrays attached.
func (r *Reader) Update(ctx context.Context) (*hierarchy.Hierarchy, *BatchResult, error) {
	fields := r.cfg.fields
	if fields == nil {
		fields = r.header.VariableNames
	}
	flats := r.cfg.blocks
	if flats == nil {
		maxLevel := r.cfg.maxLevel
		if maxLevel < 0 || maxLevel >= r.h.NumLevels() {
			maxLevel = r.h.NumLevels() - 1
		}
		it := r.h.BlocksAtOrBelow(maxLevel)
		flats = make([]int, 0, it.Len())
		for it.Next() {
			flats = append(flats, it.Flat())
		}
	}

	res, err := r.ReadBlocks(ctx, flats, fields)
	if err != nil {
		return nil, res, err
	}
	out, err := buildHierarchy(r.header, r.levels)
	if err != nil {
		return nil, res, err
	}
	for flat, b := range res.Blocks {
		dst := out.Block(flat)
		for _, a := range b.CellData {
			dst.SetCellField(a)
		}
	}
	glog.Infof("amr: update loaded %d/%d blocks (%s)", len(res.Blocks), len(flats), r.cache.Stats())
	return out, res, nil
}

// Slice cuts the plotfile with cfg. c may be nil for a single process;
// otherwise every rank must call Slice.
func (r *Reader) Slice(ctx context.Context, cfg slice.Config, c comm.Communicator) (*slice.Result, error) {
	e, err := r.NewSlicer(cfg, c)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx)
}

// NewSlicer returns an extractor over r that keeps its default plane
// offset across runs.
func (r *Reader) NewSlicer(cfg slice.Config, c comm.Communicator) (*slice.Extractor, error) {
	return slice.New(cfg, r, c)
}
