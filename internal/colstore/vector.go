package colstore

import (
	"github.com/hupe1980/e57go/schema"
)

// Vector holds the values of one column. Exactly one of the slices is used,
// selected by the field type: F64 for double floats, F32 for single floats,
// I64 for integers and B for booleans.
type Vector struct {
	Type schema.Type
	F64  []float64
	F32  []float32
	I64  []int64
	B    []bool
}

// NewVector returns an empty vector for t with room for capacity values.
func NewVector(t schema.Type, capacity int) *Vector {
	v := &Vector{Type: t}
	switch t.Kind {
	case schema.KindFloat:
		if t.Precision == schema.Single {
			v.F32 = make([]float32, 0, capacity)
		} else {
			v.F64 = make([]float64, 0, capacity)
		}
	case schema.KindInteger:
		v.I64 = make([]int64, 0, capacity)
	case schema.KindBool:
		v.B = make([]bool, 0, capacity)
	}
	return v
}

// Len returns the number of values.
func (v *Vector) Len() int {
	switch v.Type.Kind {
	case schema.KindFloat:
		if v.Type.Precision == schema.Single {
			return len(v.F32)
		}
		return len(v.F64)
	case schema.KindInteger:
		return len(v.I64)
	case schema.KindBool:
		return len(v.B)
	default:
		return 0
	}
}

// Reset truncates the vector, keeping its storage.
func (v *Vector) Reset() {
	v.F64 = v.F64[:0]
	v.F32 = v.F32[:0]
	v.I64 = v.I64[:0]
	v.B = v.B[:0]
}

// AppendRange appends src[from:to]. Both vectors must share a type.
func (v *Vector) AppendRange(src *Vector, from, to int) {
	switch v.Type.Kind {
	case schema.KindFloat:
		if v.Type.Precision == schema.Single {
			v.F32 = append(v.F32, src.F32[from:to]...)
		} else {
			v.F64 = append(v.F64, src.F64[from:to]...)
		}
	case schema.KindInteger:
		v.I64 = append(v.I64, src.I64[from:to]...)
	case schema.KindBool:
		v.B = append(v.B, src.B[from:to]...)
	}
}

// SizeBytes estimates the in-memory size of the values.
func (v *Vector) SizeBytes() int64 {
	return int64(v.Len()) * int64(valueBytes(v.Type))
}

func valueBytes(t schema.Type) int {
	switch t.Kind {
	case schema.KindFloat:
		if t.Precision == schema.Single {
			return 4
		}
		return 8
	case schema.KindInteger:
		return 8
	default:
		return 1
	}
}
