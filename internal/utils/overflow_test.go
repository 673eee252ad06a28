package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckMultiplyOverflow(t *testing.T) {
	tests := []struct {
		name    string
		a       uint64
		b       uint64
		wantErr bool
	}{
		{"small numbers", 10, 20, false},
		{"one zero", 0, math.MaxUint64, false},
		{"exact max", math.MaxUint64, 1, false},
		{"max * 2", math.MaxUint64, 2, true},
		{"large numbers", math.MaxUint64 / 2, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMultiplyOverflow(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPointCount(t *testing.T) {
	n, err := PointCount([]int{4, 8, 2})
	require.NoError(t, err)
	require.Equal(t, uint64(64), n)

	_, err = PointCount(nil)
	require.Error(t, err)

	_, err = PointCount([]int{4, 0})
	require.Error(t, err)

	_, err = PointCount([]int{math.MaxInt64, math.MaxInt64, math.MaxInt64})
	require.Error(t, err)
}

func TestColumnOffset(t *testing.T) {
	off, size, err := ColumnOffset(100, 2, 64, 8)
	require.NoError(t, err)
	require.Equal(t, int64(100+2*64*8), off)
	require.Equal(t, uint64(512), size)

	off, _, err = ColumnOffset(10, 0, 5, 4)
	require.NoError(t, err)
	require.Equal(t, int64(10), off)

	_, _, err = ColumnOffset(0, -1, 5, 4)
	require.Error(t, err)

	_, _, err = ColumnOffset(0, 0, math.MaxUint64/2, 8)
	require.Error(t, err)
}
