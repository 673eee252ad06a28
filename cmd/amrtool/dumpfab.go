package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scigolib/amr"
	"github.com/scigolib/amr/internal/core"
)

var dumpFlags struct {
	offset int64
	length int
	block  int
}

var dumpfabCmd = &cobra.Command{
	Use:   "dumpfab <file | plotfile>",
	Short: "Hex dump raw bytes of a FAB data file",
	Long: `dumpfab prints a hex dump of a data file starting at --offset.

With --block the argument is a plotfile directory: the file and offset are
taken from the level header of that block and its FAB sub-header is
printed before the dump.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		path, offset := args[0], dumpFlags.offset
		if cmd.Flags().Changed("block") {
			var err error
			if path, offset, err = locateFAB(args[0], dumpFlags.block); err != nil {
				return err
			}
		}
		if dumpFlags.length < 1 {
			return fmt.Errorf("invalid length: %d", dumpFlags.length)
		}
		return dumpFile(w, path, offset, dumpFlags.length)
	},
}

func init() {
	f := dumpfabCmd.Flags()
	f.Int64Var(&dumpFlags.offset, "offset", 0, "offset in file to start dumping from")
	f.IntVar(&dumpFlags.length, "length", 128, "number of bytes to dump")
	f.IntVar(&dumpFlags.block, "block", 0, "flat block index to locate in a plotfile")
}

// locateFAB returns the data file and sub-header offset of a block.
func locateFAB(dir string, flat int) (string, int64, error) {
	r, err := amr.Open(dir)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = r.Close() }()

	h := r.Hierarchy()
	if flat < 0 || flat >= h.NumBlocks() {
		return "", 0, fmt.Errorf("block %d out of range [0,%d)", flat, h.NumBlocks())
	}
	l, idx := h.LevelAndIndex(flat)
	fab := r.LevelHeader(l).Fabs[idx]
	info := r.Header().Levels[l]
	return filepath.Join(dir, info.LevelPrefix, fab.FileName), fab.Offset, nil
}

func dumpFile(w io.Writer, path string, offset int64, length int) error {
	f, err := os.Open(path) //nolint:gosec // G304: path is a command argument
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}
	size := fi.Size()
	if offset < 0 || offset >= size {
		return fmt.Errorf("invalid offset: %d (file size: %d)", offset, size)
	}

	if fh, err := core.ReadFABHeader(f, offset); err == nil {
		fmt.Fprintf(w, "FAB header: lo=%v hi=%v ncomp=%d real=%s data at %d\n",
			fh.Lo, fh.Hi, fh.NumComponents, fh.Real, fh.DataStart())
	}

	n := int64(length)
	if remaining := size - offset; n > remaining {
		fmt.Fprintf(w, "Warning: requested length %d exceeds available bytes (%d). Dumping %d bytes.\n",
			length, remaining, remaining)
		n = remaining
	}
	buf := make([]byte, n)
	got, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read error: %w (read %d of %d bytes)", err, got, n)
	}
	fmt.Fprintf(w, "Dumping %d bytes at offset 0x%x (%d) of %s (size: %d bytes):\n",
		got, offset, offset, path, size)
	hexDump(w, buf[:got], offset)
	return nil
}

// hexDump writes 16 bytes per row with an ASCII gutter.
func hexDump(w io.Writer, buf []byte, base int64) {
	for i := 0; i < len(buf); i += 16 {
		chunk := buf[i:min(i+16, len(buf))]

		fmt.Fprintf(w, "%08x: ", base+int64(i))
		for j := 0; j < 16; j++ {
			if j < len(chunk) {
				fmt.Fprintf(w, "%02x ", chunk[j])
			} else {
				fmt.Fprint(w, "   ")
			}
			if j == 7 {
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprint(w, " |")
		for _, b := range chunk {
			if b >= 32 && b <= 126 {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w, "|")
	}
}
