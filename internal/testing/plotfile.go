package testing

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/scigolib/amr/internal/core"
	"github.com/scigolib/amr/internal/hierarchy"
)

// ValueFunc returns the value of field f on the cell at global index ijk
// of the given level.
type ValueFunc func(f, level int, ijk [3]int) float64

// DefaultValue encodes field, level and cell index into a unique value.
func DefaultValue(f, level int, ijk [3]int) float64 {
	return float64(f*1_000_000+level*100_000) + float64(ijk[0]+ijk[1]*100+ijk[2]*10_000)
}

// Level describes one refinement level of a synthetic plotfile.
type Level struct {
	Boxes []hierarchy.Box
	// MultiFabPrefix defaults to "Cell".
	MultiFabPrefix string
}

// Plotfile describes a synthetic plotfile. Zero values get defaults from
// Write.
type Plotfile struct {
	Dim    int      // default 3
	Fields []string // default density, pressure
	Time   float64

	ProbLo   []float64 // default origin
	Spacing0 float64   // level-0 cell size, default 1
	Ratio    int       // refinement ratio between levels, default 2
	Domain   hierarchy.Box

	Levels []Level

	Real         core.RealDescriptor // default NativeDescriptor(8)
	LevelVersion core.LevelVersion   // default LevelVersionV1
	// OmitReal drops the trailing real descriptor from level headers.
	OmitReal bool
	// FABTag defaults to "FAB".
	FABTag string
	// SplitFiles writes each block to its own Cell_D file.
	SplitFiles bool

	Value ValueFunc
}

func (p *Plotfile) defaults() {
	if p.Dim == 0 {
		p.Dim = 3
	}
	if p.Fields == nil {
		p.Fields = []string{"density", "pressure"}
	}
	if p.ProbLo == nil {
		p.ProbLo = make([]float64, p.Dim)
	}
	if p.Spacing0 == 0 {
		p.Spacing0 = 1
	}
	if p.Ratio == 0 {
		p.Ratio = 2
	}
	if p.Real.Format == nil {
		p.Real = core.NativeDescriptor(8)
	}
	if p.LevelVersion == 0 {
		p.LevelVersion = core.LevelVersionV1
	}
	if p.FABTag == "" {
		p.FABTag = "FAB"
	}
	if p.Value == nil {
		p.Value = DefaultValue
	}
	if p.Domain.Dim == 0 && len(p.Levels) > 0 && len(p.Levels[0].Boxes) > 0 {
		d := p.Levels[0].Boxes[0]
		for _, b := range p.Levels[0].Boxes[1:] {
			for a := 0; a < d.Dim; a++ {
				d.Lo[a] = min(d.Lo[a], b.Lo[a])
				d.Hi[a] = max(d.Hi[a], b.Hi[a])
			}
		}
		p.Domain = d
	}
}

// Spacing returns the cell size of level l.
func (p *Plotfile) Spacing(l int) float64 {
	return p.Spacing0 / math.Pow(float64(p.Ratio), float64(l))
}

func (p *Plotfile) prefix(l int) string {
	if mf := p.Levels[l].MultiFabPrefix; mf != "" {
		return mf
	}
	return "Cell"
}

// Write lays the plotfile out under dir: Header, Level_N/<prefix>_H and
// the Level_N/<prefix>_D_NNNNN data files.
func (p *Plotfile) Write(dir string) error {
	p.defaults()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, core.HeaderFile), p.header(), 0o644); err != nil {
		return err
	}
	for l := range p.Levels {
		if err := p.writeLevel(dir, l); err != nil {
			return fmt.Errorf("level %d: %w", l, err)
		}
	}
	return nil
}

func (p *Plotfile) header() []byte {
	var b bytes.Buffer
	nlev := len(p.Levels)
	fmt.Fprintln(&b, "HyperCLaw-V1.1")
	fmt.Fprintln(&b, len(p.Fields))
	for _, f := range p.Fields {
		fmt.Fprintln(&b, f)
	}
	fmt.Fprintln(&b, p.Dim)
	fmt.Fprintln(&b, p.Time)
	fmt.Fprintln(&b, nlev-1)

	probHi := make([]float64, p.Dim)
	for a := range probHi {
		probHi[a] = p.ProbLo[a] + float64(p.Domain.Hi[a]+1)*p.Spacing0
	}
	fmt.Fprintln(&b, joinFloats(p.ProbLo))
	fmt.Fprintln(&b, joinFloats(probHi))

	ratios := make([]string, nlev-1)
	for i := range ratios {
		ratios[i] = fmt.Sprint(p.Ratio)
	}
	fmt.Fprintln(&b, strings.Join(ratios, " "))

	domains := make([]string, nlev)
	r := 1
	for l := range domains {
		domains[l] = boxTriple(p.Domain.Refine(r))
		r *= p.Ratio
	}
	fmt.Fprintln(&b, strings.Join(domains, " "))

	steps := make([]string, nlev)
	for l := range steps {
		steps[l] = fmt.Sprint(10 * (l + 1))
	}
	fmt.Fprintln(&b, strings.Join(steps, " "))

	for l := 0; l < nlev; l++ {
		dx := make([]float64, p.Dim)
		for a := range dx {
			dx[a] = p.Spacing(l)
		}
		fmt.Fprintln(&b, joinFloats(dx))
	}
	fmt.Fprintln(&b, 0)
	fmt.Fprintln(&b, 0)

	for l, lvl := range p.Levels {
		dx := p.Spacing(l)
		fmt.Fprintf(&b, "%d %d %v\n", l, len(lvl.Boxes), p.Time)
		fmt.Fprintln(&b, 10*(l+1))
		for _, box := range lvl.Boxes {
			for a := 0; a < p.Dim; a++ {
				fmt.Fprintf(&b, "%v %v\n",
					p.ProbLo[a]+float64(box.Lo[a])*dx,
					p.ProbLo[a]+float64(box.Hi[a]+1)*dx)
			}
		}
		fmt.Fprintf(&b, "Level_%d/%s\n", l, p.prefix(l))
	}
	return b.Bytes()
}

func (p *Plotfile) writeLevel(dir string, l int) error {
	lvl := p.Levels[l]
	levelDir := filepath.Join(dir, fmt.Sprintf("Level_%d", l))
	if err := os.MkdirAll(levelDir, 0o755); err != nil {
		return err
	}

	prefix := p.prefix(l)
	files := map[string]*bytes.Buffer{}
	var order []string
	fabs := make([]core.FabOnDisk, len(lvl.Boxes))
	mins := make([][]float64, len(lvl.Boxes))
	maxs := make([][]float64, len(lvl.Boxes))
	compMin := make([]float64, len(p.Fields))
	compMax := make([]float64, len(p.Fields))
	for c := range compMin {
		compMin[c], compMax[c] = math.Inf(1), math.Inf(-1)
	}

	for i, box := range lvl.Boxes {
		name := fmt.Sprintf("%s_D_00000", prefix)
		if p.SplitFiles {
			name = fmt.Sprintf("%s_D_%05d", prefix, i)
		}
		buf, ok := files[name]
		if !ok {
			buf = &bytes.Buffer{}
			files[name] = buf
			order = append(order, name)
		}
		fabs[i] = core.FabOnDisk{FileName: name, Offset: int64(buf.Len())}

		fab, lo, hi, err := p.fab(l, box)
		if err != nil {
			return err
		}
		buf.Write(fab)
		mins[i], maxs[i] = lo, hi
		for c := range lo {
			compMin[c] = math.Min(compMin[c], lo[c])
			compMax[c] = math.Max(compMax[c], hi[c])
		}
	}
	for _, name := range order {
		if err := os.WriteFile(filepath.Join(levelDir, name), files[name].Bytes(), 0o644); err != nil {
			return err
		}
	}

	var h bytes.Buffer
	fmt.Fprintln(&h, int(p.LevelVersion))
	fmt.Fprintln(&h, 0)
	fmt.Fprintln(&h, len(p.Fields))
	fmt.Fprintln(&h, 0)
	fmt.Fprintf(&h, "(%d 0\n", len(lvl.Boxes))
	for _, box := range lvl.Boxes {
		fmt.Fprintln(&h, boxTriple(box))
	}
	fmt.Fprintln(&h, ")")
	fmt.Fprintln(&h, len(fabs))
	for _, f := range fabs {
		fmt.Fprintf(&h, "FabOnDisk: %s %d\n", f.FileName, f.Offset)
	}
	switch p.LevelVersion.MinMaxKind() {
	case core.MinMaxPerFAB:
		writeTable(&h, mins)
		writeTable(&h, maxs)
	case core.MinMaxPerComponent:
		writeList(&h, compMin)
		writeList(&h, compMax)
	}
	if !p.OmitReal {
		fmt.Fprintln(&h, p.Real.String())
	}
	return os.WriteFile(filepath.Join(levelDir, prefix+"_H"), h.Bytes(), 0o644)
}

// fab encodes one block: sub-header then one column per field.
func (p *Plotfile) fab(l int, box hierarchy.Box) ([]byte, []float64, []float64, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s%s %d\n", p.FABTag, p.Real.String(), boxTriple(box), len(p.Fields))

	lo := make([]float64, len(p.Fields))
	hi := make([]float64, len(p.Fields))
	for f := range p.Fields {
		lo[f], hi[f] = math.Inf(1), math.Inf(-1)
		vals := make([]float64, 0, box.NumCells())
		box.ForEachCell(func(ijk [3]int) {
			v := p.Value(f, l, ijk)
			if p.Real.ByteWidth() == 4 {
				v = float64(float32(v))
			}
			lo[f], hi[f] = math.Min(lo[f], v), math.Max(hi[f], v)
			vals = append(vals, v)
		})
		raw, err := core.EncodeReals(vals, p.Real)
		if err != nil {
			return nil, nil, nil, err
		}
		b.Write(raw)
	}
	return b.Bytes(), lo, hi, nil
}

func boxTriple(b hierarchy.Box) string {
	lo := make([]string, b.Dim)
	hi := make([]string, b.Dim)
	typ := make([]string, b.Dim)
	for a := 0; a < b.Dim; a++ {
		lo[a] = fmt.Sprint(b.Lo[a])
		hi[a] = fmt.Sprint(b.Hi[a])
		typ[a] = "0"
	}
	return fmt.Sprintf("((%s) (%s) (%s))", strings.Join(lo, ","), strings.Join(hi, ","), strings.Join(typ, ","))
}

func joinFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, " ")
}

func writeTable(b *bytes.Buffer, rows [][]float64) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	fmt.Fprintf(b, "%d,%d\n", len(rows), cols)
	for _, row := range rows {
		for _, v := range row {
			fmt.Fprintf(b, "%v,", v)
		}
		b.WriteByte('\n')
	}
}

func writeList(b *bytes.Buffer, vals []float64) {
	fmt.Fprintf(b, "%d,", len(vals))
	for _, v := range vals {
		fmt.Fprintf(b, "%v,", v)
	}
	b.WriteByte('\n')
}
