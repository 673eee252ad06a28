package hierarchy

import "fmt"

// Precision identifies the numeric width of an Array.
type Precision uint8

// Supported array precisions.
const (
	Float32 Precision = 4
	Float64 Precision = 8
)

// Array is a named field attached to a block. Values are stored as tuples of
// Components entries in x-fastest cell order.
type Array struct {
	Name       string
	Components int
	f32        []float32
	f64        []float64
}

// NewFloat32Array wraps single-precision values.
func NewFloat32Array(name string, components int, values []float32) *Array {
	return &Array{Name: name, Components: components, f32: values}
}

// NewFloat64Array wraps double-precision values.
func NewFloat64Array(name string, components int, values []float64) *Array {
	return &Array{Name: name, Components: components, f64: values}
}

// NewArray allocates a zeroed array of n tuples.
func NewArray(name string, components, n int, p Precision) *Array {
	if p == Float32 {
		return NewFloat32Array(name, components, make([]float32, n*components))
	}
	return NewFloat64Array(name, components, make([]float64, n*components))
}

// Precision returns the storage precision.
func (a *Array) Precision() Precision {
	if a.f32 != nil {
		return Float32
	}
	return Float64
}

// Len returns the number of tuples.
func (a *Array) Len() int {
	if a.Components == 0 {
		return 0
	}
	if a.f32 != nil {
		return len(a.f32) / a.Components
	}
	return len(a.f64) / a.Components
}

// Value returns component c of tuple i as float64.
func (a *Array) Value(i, c int) float64 {
	if a.f32 != nil {
		return float64(a.f32[i*a.Components+c])
	}
	return a.f64[i*a.Components+c]
}

// CopyTuple copies tuple src of from into tuple dst of a.
func (a *Array) CopyTuple(dst int, from *Array, src int) {
	if a.Components != from.Components {
		panic(fmt.Sprintf("hierarchy: copying %d-component tuple into %d-component array %q",
			from.Components, a.Components, a.Name))
	}
	for c := 0; c < a.Components; c++ {
		v := from.Value(src, c)
		if a.f32 != nil {
			a.f32[dst*a.Components+c] = float32(v)
		} else {
			a.f64[dst*a.Components+c] = v
		}
	}
}

// Float32s returns the raw single-precision payload, or nil.
func (a *Array) Float32s() []float32 { return a.f32 }

// Float64s returns the raw double-precision payload, or nil.
func (a *Array) Float64s() []float64 { return a.f64 }
