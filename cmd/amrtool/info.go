package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scigolib/amr"
	"github.com/scigolib/amr/internal/core"
)

var infoCmd = &cobra.Command{
	Use:   "info [plotfile]",
	Short: "Print plotfile metadata",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
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
		return printInfo(cmd.OutOrStdout(), r)
	},
}

func printInfo(w io.Writer, r *amr.Reader) error {
	hdr := r.Header()
	h := r.Hierarchy()
	b := h.Bounds()
	fmt.Fprintf(w, "plotfile:  %s\n", r.Dir())
	fmt.Fprintf(w, "version:   %s\n", hdr.Version)
	fmt.Fprintf(w, "dimension: %d (%s)\n", hdr.Dim, h.Orientation)
	fmt.Fprintf(w, "time:      %g\n", r.Time())
	fmt.Fprintf(w, "fields:    %v\n", r.VariableNames())
	fmt.Fprintf(w, "bounds:    [%g,%g] x [%g,%g] x [%g,%g]\n",
		b.Min[0], b.Max[0], b.Min[1], b.Max[1], b.Min[2], b.Max[2])

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tBLOCKS\tRATIO\tSPACING\tSTATS")
	for l := 0; l < h.NumLevels(); l++ {
		lv := h.Level(l)
		lh := r.LevelHeader(l)
		fmt.Fprintf(tw, "%d\t%d\t%d\t%g\t%s\n",
			l, len(lv.Blocks), lv.RefinementRatio, lv.Spacing[0], statsName(lh.Stats))
	}
	return tw.Flush()
}

func statsName(k core.MinMaxKind) string {
	switch k {
	case core.MinMaxPerFAB:
		return "per-fab"
	case core.MinMaxPerComponent:
		return "per-component"
	}
	return "none"
}
