package utils

import (
	"fmt"
	"math"
)

// MaxPayloadSize limits a single field payload read to 4GB.
const MaxPayloadSize = 4 * 1024 * 1024 * 1024

// CheckMultiplyOverflow checks if multiplying two uint64 values would overflow.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil
	}

	if a > math.MaxUint64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}

	return nil
}

// SafeMultiply multiplies two uint64 values and returns the result if no overflow occurs.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// PointCount returns the product of the box extents, failing on overflow or
// on an inverted extent.
func PointCount(extents []int) (uint64, error) {
	if len(extents) == 0 {
		return 0, fmt.Errorf("no extents provided")
	}

	total := uint64(1)
	for i, e := range extents {
		if e <= 0 {
			return 0, fmt.Errorf("non-positive extent %d at axis %d", e, i)
		}
		var err error
		if total, err = SafeMultiply(total, uint64(e)); err != nil {
			return 0, fmt.Errorf("point count overflow at axis %d: %w", i, err)
		}
	}
	return total, nil
}

// ColumnOffset returns the byte offset of component column within a FAB
// payload that starts at dataStart, and the column's length in bytes.
func ColumnOffset(dataStart int64, column int, points uint64, width int) (int64, uint64, error) {
	if column < 0 || width <= 0 {
		return 0, 0, fmt.Errorf("invalid column %d or width %d", column, width)
	}

	size, err := SafeMultiply(points, uint64(width))
	if err != nil {
		return 0, 0, err
	}
	if size > MaxPayloadSize {
		return 0, 0, fmt.Errorf("column size %d exceeds maximum %d", size, uint64(MaxPayloadSize))
	}

	skip, err := SafeMultiply(size, uint64(column))
	if err != nil {
		return 0, 0, err
	}
	if skip > math.MaxInt64-uint64(dataStart) {
		return 0, 0, fmt.Errorf("column offset overflow: start %d + %d", dataStart, skip)
	}

	//nolint:gosec // G115: bounded by the check above
	return dataStart + int64(skip), size, nil
}
