package colstore

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/e57go/schema"
)

// Encoding identifies the raw layout of a column chunk.
type Encoding uint8

const (
	encFloat64 Encoding = iota + 1
	encFloat32
	encInteger
	encBoolBitset
	encBoolRoaring
)

// intWidth returns the stored bytes per value of an integer type.
func intWidth(t schema.Type) int {
	return (t.BitWidth() + 7) / 8
}

// encodeVector returns the raw chunk for v.
func encodeVector(v *Vector) (Encoding, []byte, error) {
	switch v.Type.Kind {
	case schema.KindFloat:
		if v.Type.Precision == schema.Single {
			out := make([]byte, 4*len(v.F32))
			for i, f := range v.F32 {
				binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
			}
			return encFloat32, out, nil
		}
		out := make([]byte, 8*len(v.F64))
		for i, f := range v.F64 {
			binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(f))
		}
		return encFloat64, out, nil

	case schema.KindInteger:
		w := intWidth(v.Type)
		out := make([]byte, w*len(v.I64))
		var tmp [8]byte
		for i, x := range v.I64 {
			if !v.Type.Contains(x) {
				return 0, nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, x, v.Type.Min, v.Type.Max)
			}
			binary.LittleEndian.PutUint64(tmp[:], uint64(x)-uint64(v.Type.Min))
			copy(out[w*i:], tmp[:w])
		}
		return encInteger, out, nil

	case schema.KindBool:
		return encodeBools(v.B)

	default:
		return 0, nil, fmt.Errorf("colstore: cannot encode %s", v.Type)
	}
}

// encodeBools picks the smaller of a dense bitset and a roaring bitmap.
func encodeBools(vals []bool) (Encoding, []byte, error) {
	bs := bitset.New(uint(len(vals)))
	rb := roaring.New()
	for i, b := range vals {
		if b {
			bs.Set(uint(i))
			rb.Add(uint32(i))
		}
	}
	rb.RunOptimize()

	if rb.GetSerializedSizeInBytes() < uint64(bs.BinaryStorageSize()) {
		out, err := rb.ToBytes()
		return encBoolRoaring, out, err
	}
	out, err := bs.MarshalBinary()
	return encBoolBitset, out, err
}

// decodeVector decodes n values of type t from a raw chunk.
func decodeVector(enc Encoding, raw []byte, t schema.Type, n int) (*Vector, error) {
	v := &Vector{Type: t}

	switch enc {
	case encFloat64:
		if t.Kind != schema.KindFloat || t.Precision != schema.Double || len(raw) != 8*n {
			return nil, fmt.Errorf("%w: float64 chunk of %d bytes for %d values of %s", ErrCorrupt, len(raw), n, t)
		}
		v.F64 = make([]float64, n)
		for i := range v.F64 {
			v.F64[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
		}

	case encFloat32:
		if t.Kind != schema.KindFloat || t.Precision != schema.Single || len(raw) != 4*n {
			return nil, fmt.Errorf("%w: float32 chunk of %d bytes for %d values of %s", ErrCorrupt, len(raw), n, t)
		}
		v.F32 = make([]float32, n)
		for i := range v.F32 {
			v.F32[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}

	case encInteger:
		w := intWidth(t)
		if t.Kind != schema.KindInteger || len(raw) != w*n {
			return nil, fmt.Errorf("%w: integer chunk of %d bytes for %d values of %s", ErrCorrupt, len(raw), n, t)
		}
		v.I64 = make([]int64, n)
		var tmp [8]byte
		for i := range v.I64 {
			copy(tmp[:w], raw[w*i:w*i+w])
			x := int64(uint64(t.Min) + binary.LittleEndian.Uint64(tmp[:]))
			if !t.Contains(x) {
				return nil, fmt.Errorf("%w: integer %d outside [%d, %d]", ErrCorrupt, x, t.Min, t.Max)
			}
			v.I64[i] = x
		}

	case encBoolBitset:
		if t.Kind != schema.KindBool {
			return nil, fmt.Errorf("%w: bitset chunk for %s", ErrCorrupt, t)
		}
		var bs bitset.BitSet
		if err := bs.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if bs.Len() != uint(n) {
			return nil, fmt.Errorf("%w: bitset of %d bits for %d values", ErrCorrupt, bs.Len(), n)
		}
		v.B = make([]bool, n)
		for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
			v.B[i] = true
		}

	case encBoolRoaring:
		if t.Kind != schema.KindBool {
			return nil, fmt.Errorf("%w: roaring chunk for %s", ErrCorrupt, t)
		}
		rb := roaring.New()
		if err := rb.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if !rb.IsEmpty() && rb.Maximum() >= uint32(n) {
			return nil, fmt.Errorf("%w: roaring position %d beyond %d values", ErrCorrupt, rb.Maximum(), n)
		}
		v.B = make([]bool, n)
		it := rb.Iterator()
		for it.HasNext() {
			v.B[it.Next()] = true
		}

	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrCorrupt, enc)
	}

	return v, nil
}
