package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/scigolib/amr/internal/hierarchy"
	"github.com/scigolib/amr/internal/utils"
)

// RealDescriptor describes how a floating-point value is laid out on disk.
// Format is the bit layout (total bits, exponent bits, mantissa bits, sign,
// exponent and mantissa positions, ..., bias). Order lists, for each byte of
// the value, its 1-based position in most-significant-first order; an IEEE
// little-endian double is (8 7 6 5 4 3 2 1), big-endian is (1 2 ... 8).
type RealDescriptor struct {
	Format []int
	Order  []int
}

// IEEE-754 bit layouts.
var (
	ieeeDoubleFormat = []int{64, 11, 52, 0, 1, 12, 0, 1023}
	ieeeFloatFormat  = []int{32, 8, 23, 0, 1, 9, 0, 127}
)

// NativeDescriptor returns the IEEE-754 little-endian descriptor of the
// given byte width (4 or 8). Decoded arrays are always produced from it.
func NativeDescriptor(width int) RealDescriptor {
	if width == 4 {
		return RealDescriptor{Format: slices.Clone(ieeeFloatFormat), Order: []int{4, 3, 2, 1}}
	}
	return RealDescriptor{Format: slices.Clone(ieeeDoubleFormat), Order: []int{8, 7, 6, 5, 4, 3, 2, 1}}
}

// BigEndianDescriptor returns the IEEE-754 big-endian descriptor of the
// given byte width.
func BigEndianDescriptor(width int) RealDescriptor {
	d := NativeDescriptor(width)
	slices.Reverse(d.Order)
	return d
}

// ByteWidth returns the size of one value in bytes.
func (d RealDescriptor) ByteWidth() int {
	return len(d.Order)
}

// Equal reports whether both format and order match.
func (d RealDescriptor) Equal(o RealDescriptor) bool {
	return d.SameFormat(o) && slices.Equal(d.Order, o.Order)
}

// SameFormat reports whether two descriptors share a bit layout and width,
// possibly differing in byte order.
func (d RealDescriptor) SameFormat(o RealDescriptor) bool {
	return slices.Equal(d.Format, o.Format) && len(d.Order) == len(o.Order)
}

// Validate checks that Order is a permutation of 1..width and that the
// format's bit count matches it.
func (d RealDescriptor) Validate() error {
	w := len(d.Order)
	if w == 0 {
		return utils.FormatError("real descriptor: empty byte order")
	}
	if len(d.Format) > 0 && d.Format[0] != 8*w {
		return utils.FormatError("real descriptor: %d-bit format with %d-byte order", d.Format[0], w)
	}
	seen := make([]bool, w+1)
	for _, p := range d.Order {
		if p < 1 || p > w || seen[p] {
			return utils.FormatError("real descriptor: order %v is not a permutation of 1..%d", d.Order, w)
		}
		seen[p] = true
	}
	return nil
}

// String formats the descriptor in plotfile notation.
func (d RealDescriptor) String() string {
	return fmt.Sprintf("((%d, (%s)),(%d, (%s)))", len(d.Format), joinInts(d.Format), len(d.Order), joinInts(d.Order))
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, " ")
}

// ConvertReals converts n values from one layout to another. Identical
// descriptors are copied in bulk; descriptors differing only in byte order
// are permuted value by value. Any other mismatch is rejected.
func ConvertReals(dst, src []byte, n int, from, to RealDescriptor) error {
	if !from.SameFormat(to) {
		return utils.WrapError(utils.KindUnsupportedEncoding, "converting reals",
			fmt.Errorf("source %v and target %v differ in more than byte order", from, to))
	}
	w := to.ByteWidth()
	if len(src) < n*w || len(dst) < n*w {
		return utils.WrapError(utils.KindIO, "converting reals",
			fmt.Errorf("buffers of %d/%d bytes for %d values of width %d", len(src), len(dst), n, w))
	}
	if from.Equal(to) {
		copy(dst[:n*w], src[:n*w])
		return nil
	}
	for base := 0; base < n*w; base += w {
		for i := 0; i < w; i++ {
			dst[base+to.Order[i]-1] = src[base+from.Order[i]-1]
		}
	}
	return nil
}

// DecodeReals converts raw bytes in layout d into an array named name.
// A 4-byte layout yields single precision; anything else double.
func DecodeReals(name string, raw []byte, n int, d RealDescriptor) (*hierarchy.Array, error) {
	w := d.ByteWidth()
	native := NativeDescriptor(w)
	buf := raw
	if !d.Equal(native) {
		buf = make([]byte, n*w)
		if err := ConvertReals(buf, raw, n, d, native); err != nil {
			return nil, err
		}
	}

	if w == 4 {
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		return hierarchy.NewFloat32Array(name, 1, out), nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return hierarchy.NewFloat64Array(name, 1, out), nil
}

// EncodeReals writes values in layout d. Width 4 stores single precision.
func EncodeReals(values []float64, d RealDescriptor) ([]byte, error) {
	w := d.ByteWidth()
	native := NativeDescriptor(w)
	buf := make([]byte, len(values)*w)
	for i, v := range values {
		if w == 4 {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
		} else {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
		}
	}
	if d.Equal(native) {
		return buf, nil
	}
	out := make([]byte, len(buf))
	if err := ConvertReals(out, buf, len(values), native, d); err != nil {
		return nil, err
	}
	return out, nil
}

// readDescriptor parses ((n, (format...)),(n, (order...))).
func (s *scanner) readDescriptor() (RealDescriptor, error) {
	var d RealDescriptor
	if err := s.expect('('); err != nil {
		return d, err
	}
	format, err := s.intArray()
	if err != nil {
		return d, err
	}
	if err := s.expect(','); err != nil {
		return d, err
	}
	order, err := s.intArray()
	if err != nil {
		return d, err
	}
	if err := s.expect(')'); err != nil {
		return d, err
	}
	d = RealDescriptor{Format: format, Order: order}
	return d, d.Validate()
}

// intArray parses (n, (a b c ...)).
func (s *scanner) intArray() ([]int, error) {
	if err := s.expect('('); err != nil {
		return nil, err
	}
	n, err := s.int()
	if err != nil {
		return nil, err
	}
	if n < 0 || n > 64 {
		return nil, s.fail("descriptor length %d", n)
	}
	if err := s.expect(','); err != nil {
		return nil, err
	}
	if err := s.expect('('); err != nil {
		return nil, err
	}
	vals, err := s.ints(n)
	if err != nil {
		return nil, err
	}
	if err := s.expect(')'); err != nil {
		return nil, err
	}
	return vals, s.expect(')')
}
