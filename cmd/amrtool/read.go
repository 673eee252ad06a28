package main

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/scigolib/amr"
)

var (
	readBlocks []int
	readFields []string
)

var readCmd = &cobra.Command{
	Use:   "read [plotfile]",
	Short: "Decode fields and print per-block statistics",
	Long: `read decodes the requested fields of the requested blocks (all of
them by default) and prints min, max and mean of each. Blocks that fail to
decode are reported and do not stop the others.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("block") {
			cfg.Reader.Blocks = readBlocks
		}
		if cmd.Flags().Changed("field") {
			cfg.Reader.Fields = readFields
		}
		dir, err := plotfileArg(cfg, args)
		if err != nil {
			return err
		}
		r, err := amr.Open(dir, readerOptions(cfg.Reader)...)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		flats := cfg.Reader.Blocks
		if len(flats) == 0 {
			for f := 0; f < r.Hierarchy().NumBlocks(); f++ {
				flats = append(flats, f)
			}
		}
		res, err := r.ReadBlocks(cmd.Context(), flats, cfg.Reader.Fields)
		if err != nil {
			return err
		}
		printBlocks(cmd.OutOrStdout(), res)
		fmt.Fprintln(cmd.OutOrStdout(), r.Stats())
		return res.Err()
	},
}

func init() {
	readCmd.Flags().IntSliceVar(&readBlocks, "block", nil, "flat block indices to read")
	readCmd.Flags().StringSliceVar(&readFields, "field", nil, "fields to read")
}

func printBlocks(w io.Writer, res *amr.BatchResult) {
	for _, flat := range slices.Sorted(maps.Keys(res.Blocks)) {
		b := res.Blocks[flat]
		for _, name := range slices.Sorted(maps.Keys(b.CellData)) {
			lo, hi, mean := summarize(b.CellData[name])
			fmt.Fprintf(w, "block %d (level %d %s) %s: min=%g max=%g mean=%g\n",
				b.Flat, b.Level, b.Box, name, lo, hi, mean)
		}
	}
	for _, flat := range slices.Sorted(maps.Keys(res.Failures)) {
		fmt.Fprintf(w, "block %d: %v\n", flat, res.Failures[flat])
	}
}

// summarize returns min, max and mean over every value of a.
func summarize(a *amr.Array) (lo, hi, mean float64) {
	vals := a.Float64s()
	if vals == nil {
		f32 := a.Float32s()
		vals = make([]float64, len(f32))
		for i, v := range f32 {
			vals[i] = float64(v)
		}
	}
	if len(vals) == 0 {
		return 0, 0, 0
	}
	return floats.Min(vals), floats.Max(vals), floats.Sum(vals) / float64(len(vals))
}
