package core

import (
	"fmt"
	"io"

	"github.com/scigolib/amr/internal/hierarchy"
	"github.com/scigolib/amr/internal/utils"
)

// FAB sub-headers are short; this bounds how far the text scan may run.
const maxFABHeaderSize = 64 * 1024

// FABHeader is the textual prefix of one block's binary payload.
type FABHeader struct {
	// Version is 0 for "FAB ..." and n for "FAB:n ...".
	Version       int
	Real          RealDescriptor
	Lo, Hi        []int
	NumComponents int

	// End is the absolute file offset just past the sub-header text; the
	// payload starts one delimiter byte later.
	End int64
}

// Points returns the number of values per component.
func (fh *FABHeader) Points() (uint64, error) {
	ext := make([]int, len(fh.Lo))
	for a := range fh.Lo {
		ext[a] = fh.Hi[a] - fh.Lo[a] + 1
	}
	return utils.PointCount(ext)
}

// DataStart returns the absolute offset of the first payload byte.
func (fh *FABHeader) DataStart() int64 {
	return fh.End + 1
}

// ReadFABHeader parses the sub-header stored at offset. Running off the end
// of the file is an IOError; a malformed sub-header is a FormatError.
func ReadFABHeader(r utils.ReaderAt, offset int64) (*FABHeader, error) {
	s := newScanner(io.NewSectionReader(r, offset, maxFABHeaderSize))
	fh, err := parseFABHeader(s)
	if err != nil {
		kind := utils.KindFormat
		if isIOScanError(err) {
			kind = utils.KindIO
		}
		return nil, utils.WrapError(kind, fmt.Sprintf("reading FAB header at offset %d", offset), err)
	}
	fh.End = offset + s.off
	return fh, nil
}

func parseFABHeader(s *scanner) (*FABHeader, error) {
	if err := s.skipSpace(); err != nil {
		return nil, err
	}
	tag := make([]byte, 3)
	for i := range tag {
		c, err := s.readByte()
		if err != nil {
			return nil, err
		}
		tag[i] = c
	}
	if string(tag) != "FAB" {
		return nil, fmt.Errorf("expected FAB tag, found %q", tag)
	}

	fh := &FABHeader{}
	c, err := s.readByte()
	if err != nil {
		return nil, err
	}
	if c == ':' {
		if fh.Version, err = s.int(); err != nil {
			return nil, err
		}
	} else {
		s.unreadByte()
	}

	if fh.Real, err = s.readDescriptor(); err != nil {
		return nil, err
	}
	lo, hi, _, err := s.boxTriple(0)
	if err != nil {
		return nil, err
	}
	fh.Lo, fh.Hi = lo, hi
	if fh.NumComponents, err = s.int(); err != nil {
		return nil, err
	}
	if fh.NumComponents < 1 {
		return nil, fmt.Errorf("component count %d", fh.NumComponents)
	}
	return fh, nil
}

// ReadFABColumn decodes component column of the FAB stored at offset into
// an array named name.
func ReadFABColumn(r utils.ReaderAt, offset int64, column int, name string) (*hierarchy.Array, error) {
	fh, err := ReadFABHeader(r, offset)
	if err != nil {
		return nil, err
	}
	if column < 0 || column >= fh.NumComponents {
		return nil, utils.FormatError("column %d of a %d-component FAB", column, fh.NumComponents)
	}
	points, err := fh.Points()
	if err != nil {
		return nil, utils.WrapError(utils.KindFormat, "FAB box", err)
	}

	start, size, err := utils.ColumnOffset(fh.DataStart(), column, points, fh.Real.ByteWidth())
	if err != nil {
		return nil, utils.WrapError(utils.KindFormat, "FAB layout", err)
	}
	//nolint:gosec // G115: size is bounded by utils.MaxPayloadSize
	raw := utils.GetBuffer(int(size))
	defer utils.ReleaseBuffer(raw)
	if n, err := r.ReadAt(raw, start); n != len(raw) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, utils.WrapError(utils.KindIO,
			fmt.Sprintf("reading %d bytes at offset %d", size, start), err)
	}

	//nolint:gosec // G115: points is bounded by utils.MaxPayloadSize
	return DecodeReals(name, raw, int(points), fh.Real)
}
