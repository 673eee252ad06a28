package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scigolib/amr"
	"github.com/scigolib/amr/internal/config"
)

var sliceFlags struct {
	normal   string
	offset   float64
	maxLevel int
	prefetch bool
	fields   []string
	ranks    int
}

var sliceCmd = &cobra.Command{
	Use:   "slice [plotfile]",
	Short: "Cut the hierarchy with an axis-aligned plane",
	Long: `slice extracts a 2D hierarchy on the plane normal to --normal at
--offset (the domain midpoint when unset). With --ranks > 1 the cut runs
over an in-process group and each rank reports what it owns.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applySliceFlags(cmd, &cfg.Slice); err != nil {
			return err
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

		results, err := runSlice(cmd.Context(), r, cfg.Slice)
		if err != nil {
			return err
		}
		for rank, res := range results {
			printSlice(cmd.OutOrStdout(), rank, res)
		}
		return nil
	},
}

func init() {
	f := sliceCmd.Flags()
	f.StringVar(&sliceFlags.normal, "normal", "z", "plane normal: x, y or z")
	f.Float64Var(&sliceFlags.offset, "offset", 0, "plane position along the normal")
	f.IntVar(&sliceFlags.maxLevel, "max-level", -1, "finest level to emit; negative for all")
	f.BoolVar(&sliceFlags.prefetch, "prefetch", false, "also load the next finer level")
	f.StringSliceVar(&sliceFlags.fields, "field", nil, "fields to slice")
	f.IntVar(&sliceFlags.ranks, "ranks", 1, "in-process ranks")
}

func applySliceFlags(cmd *cobra.Command, s *config.Slice) error {
	f := cmd.Flags()
	if f.Changed("normal") {
		a, err := config.ParseAxis(sliceFlags.normal)
		if err != nil {
			return err
		}
		s.Normal = a
	}
	if f.Changed("offset") {
		v := sliceFlags.offset
		s.Offset = &v
	}
	if f.Changed("max-level") {
		s.MaxLevel = sliceFlags.maxLevel
	}
	if f.Changed("prefetch") {
		s.Prefetch = sliceFlags.prefetch
	}
	if f.Changed("field") {
		s.Fields = sliceFlags.fields
	}
	if f.Changed("ranks") {
		if sliceFlags.ranks < 1 {
			return fmt.Errorf("--ranks %d", sliceFlags.ranks)
		}
		s.Ranks = sliceFlags.ranks
	}
	return nil
}

// runSlice cuts r on every rank and returns the results by rank.
func runSlice(ctx context.Context, r *amr.Reader, s config.Slice) ([]*amr.SliceResult, error) {
	sc := sliceConfig(s)
	if s.Ranks <= 1 {
		res, err := r.Slice(ctx, sc, amr.SingleProcess())
		if err != nil {
			return nil, err
		}
		return []*amr.SliceResult{res}, nil
	}
	results := make([]*amr.SliceResult, s.Ranks)
	err := amr.NewGroup(s.Ranks).Run(ctx, func(ctx context.Context, c amr.Communicator) error {
		res, err := r.Slice(ctx, sc, c)
		results[c.Rank()] = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func printSlice(w io.Writer, rank int, res *amr.SliceResult) {
	if res.Passthrough {
		fmt.Fprintf(w, "rank %d: passthrough (%s)\n", rank, res.Hierarchy.Orientation)
		return
	}
	h := res.Hierarchy
	fmt.Fprintf(w, "rank %d: axis %d offset %g, %d levels, %d blocks, prefetched %d\n",
		rank, res.Axis, res.Offset, h.NumLevels(), h.NumBlocks(), len(res.Prefetched))
	for flat := 0; flat < h.NumBlocks(); flat++ {
		b := h.Block(flat)
		fmt.Fprintf(w, "  block %d level %d %s source=%d owner=%d hidden=%d\n",
			flat, b.Level, b.Box, res.Selected[flat], res.Ownership.Owner(flat), res.Hidden[flat])
	}
	if len(res.Coincident) > 0 {
		fmt.Fprintf(w, "  coincident source blocks %v\n", res.Coincident)
	}
	for src, err := range res.Failures {
		fmt.Fprintf(w, "  source block %d: %v\n", src, err)
	}
	if warn := res.Warning(); warn != nil {
		fmt.Fprintf(w, "  warning: %v\n", warn)
	}
}
