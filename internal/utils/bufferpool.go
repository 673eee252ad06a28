// Package utils provides error, buffer and arithmetic helpers shared by the
// plotfile reader packages.
package utils

import (
	"math/bits"
	"sync"
)

// ReaderAt is a simplified interface for io.ReaderAt.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}

// Buffers are pooled in power-of-two size classes from 512 bytes (a FAB
// sub-header) to 64 MiB (a large column). Bigger requests are not pooled.
const (
	minClassShift = 9
	maxClassShift = 26
)

var bufferPools [maxClassShift - minClassShift + 1]sync.Pool

// sizeClass returns the pool index for a buffer of size bytes, or -1.
func sizeClass(size int) int {
	if size <= 1<<minClassShift {
		return 0
	}
	shift := bits.Len(uint(size - 1))
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

// GetBuffer returns a byte slice of the given length. Its contents are
// undefined.
func GetBuffer(size int) []byte {
	c := sizeClass(size)
	if c < 0 {
		return make([]byte, size)
	}
	if p, ok := bufferPools[c].Get().(*[]byte); ok {
		return (*p)[:size]
	}
	return make([]byte, size, 1<<(c+minClassShift))
}

// ReleaseBuffer returns a buffer from GetBuffer to its pool. Buffers whose
// capacity is not a pooled class are dropped.
func ReleaseBuffer(buf []byte) {
	c := sizeClass(cap(buf))
	if c < 0 || cap(buf) != 1<<(c+minClassShift) {
		return
	}
	buf = buf[:0]
	bufferPools[c].Put(&buf)
}
