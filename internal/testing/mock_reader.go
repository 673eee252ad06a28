// Package testing provides fixtures for plotfile tests: an in-memory
// ReaderAt and a writer that lays out complete synthetic plotfiles.
package testing

import (
	"errors"
	"io"
	"sync/atomic"
)

// MockReaderAt serves ReadAt from a byte slice the way *os.File does:
// reads that run past the end return io.EOF with the bytes available.
// It is safe for concurrent use.
type MockReaderAt struct {
	data  []byte
	reads atomic.Int64

	// FailAt, when non-negative, makes any read covering that offset fail
	// with Err.
	FailAt int64
	Err    error
}

// NewMockReaderAt creates a mock reader over data.
func NewMockReaderAt(data []byte) *MockReaderAt {
	return &MockReaderAt{data: data, FailAt: -1}
}

// Reads returns the number of ReadAt calls so far.
func (m *MockReaderAt) Reads() int64 { return m.reads.Load() }

// ReadAt implements io.ReaderAt.
func (m *MockReaderAt) ReadAt(p []byte, off int64) (int, error) {
	m.reads.Add(1)
	if off < 0 {
		return 0, errors.New("mock: negative offset")
	}
	if m.FailAt >= 0 && off <= m.FailAt && m.FailAt < off+int64(len(p)) {
		return 0, m.Err
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
