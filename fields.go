package e57go

import (
	"fmt"
	"sort"

	"github.com/hupe1980/e57go/internal/colstore"
	"github.com/hupe1980/e57go/schema"
)

// Buffer is a caller-owned column buffer bound to one field. Create one with
// Floats, Ints or Bools. A session uses its buffers only during Transfer.
type Buffer interface {
	// Len returns the capacity of the buffer in records.
	Len() int

	kind() schema.Kind
	// covers reports whether every value of t fits the buffer's element type.
	covers(t schema.Type) bool
	// load copies src[from:to] into the buffer starting at dst.
	load(src *colstore.Vector, dst, from, to int)
	// store appends the first n values of the buffer to dst.
	store(dst *colstore.Vector, n int) error
}

// Float is the element type of float buffers.
type Float interface {
	~float32 | ~float64
}

// Integer is the element type of integer buffers.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int | ~uint8 | ~uint16 | ~uint32
}

// Floats binds a float slice. Values are converted between single and
// double precision as needed.
func Floats[T Float](s []T) Buffer { return floatBuffer[T](s) }

// Ints binds an integer slice.
func Ints[T Integer](s []T) Buffer { return intBuffer[T](s) }

// Bools binds a boolean slice.
func Bools(s []bool) Buffer { return boolBuffer(s) }

type floatBuffer[T Float] []T

func (b floatBuffer[T]) Len() int                { return len(b) }
func (floatBuffer[T]) kind() schema.Kind         { return schema.KindFloat }
func (floatBuffer[T]) covers(t schema.Type) bool { return t.Kind == schema.KindFloat }

func (b floatBuffer[T]) load(src *colstore.Vector, dst, from, to int) {
	out := b[dst : dst+to-from]
	if src.Type.Precision == schema.Single {
		for i, v := range src.F32[from:to] {
			out[i] = T(v)
		}
		return
	}
	for i, v := range src.F64[from:to] {
		out[i] = T(v)
	}
}

func (b floatBuffer[T]) store(dst *colstore.Vector, n int) error {
	if dst.Type.Precision == schema.Single {
		for _, v := range b[:n] {
			dst.F32 = append(dst.F32, float32(v))
		}
		return nil
	}
	for _, v := range b[:n] {
		dst.F64 = append(dst.F64, float64(v))
	}
	return nil
}

type intBuffer[T Integer] []T

func (b intBuffer[T]) Len() int        { return len(b) }
func (intBuffer[T]) kind() schema.Kind { return schema.KindInteger }

func (intBuffer[T]) covers(t schema.Type) bool {
	lo, hi := intRange[T]()
	return t.Kind == schema.KindInteger && t.Min >= lo && t.Max <= hi
}

func (b intBuffer[T]) load(src *colstore.Vector, dst, from, to int) {
	out := b[dst : dst+to-from]
	for i, v := range src.I64[from:to] {
		out[i] = T(v)
	}
}

func (b intBuffer[T]) store(dst *colstore.Vector, n int) error {
	for i, v := range b[:n] {
		x := int64(v)
		if !dst.Type.Contains(x) {
			return &valueError{record: i, value: x, typ: dst.Type}
		}
		dst.I64 = append(dst.I64, x)
	}
	return nil
}

// intRange returns the value range of T.
func intRange[T Integer]() (lo, hi int64) {
	bits := 0
	for x := T(1); x != 0; x <<= 1 {
		bits++
	}
	if ^T(0) < 0 {
		return -1 << (bits - 1), int64(uint64(1)<<(bits-1) - 1)
	}
	return 0, int64(uint64(1)<<bits - 1)
}

type boolBuffer []bool

func (b boolBuffer) Len() int                { return len(b) }
func (boolBuffer) kind() schema.Kind         { return schema.KindBool }
func (boolBuffer) covers(t schema.Type) bool { return t.Kind == schema.KindBool }

func (b boolBuffer) load(src *colstore.Vector, dst, from, to int) {
	copy(b[dst:dst+to-from], src.B[from:to])
}

func (b boolBuffer) store(dst *colstore.Vector, n int) error {
	dst.B = append(dst.B, b[:n]...)
	return nil
}

type valueError struct {
	record int
	value  int64
	typ    schema.Type
}

func (e *valueError) Error() string {
	return fmt.Sprintf("record %d: value %d outside %s", e.record, e.value, e.typ)
}

// FieldSet declares the fields of one transfer session and the buffer bound
// to each. A field is transferred exactly when it is bound.
//
// The zero value is an empty set ready to use.
type FieldSet struct {
	bufs  map[schema.FieldID]Buffer
	order []schema.FieldID
}

// NewFieldSet returns an empty field set.
func NewFieldSet() *FieldSet {
	return &FieldSet{}
}

// Bind binds buf to field id, replacing an earlier binding. It returns the
// set for chaining.
func (s *FieldSet) Bind(id schema.FieldID, buf Buffer) *FieldSet {
	if s.bufs == nil {
		s.bufs = make(map[schema.FieldID]Buffer)
	}
	if _, ok := s.bufs[id]; !ok {
		s.order = append(s.order, id)
	}
	s.bufs[id] = buf
	return s
}

// Unbind removes the binding of id.
func (s *FieldSet) Unbind(id schema.FieldID) {
	if _, ok := s.bufs[id]; !ok {
		return
	}
	delete(s.bufs, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Has reports whether id is bound.
func (s *FieldSet) Has(id schema.FieldID) bool {
	if s == nil {
		return false
	}
	_, ok := s.bufs[id]
	return ok
}

// Buffer returns the buffer bound to id.
func (s *FieldSet) Buffer(id schema.FieldID) (Buffer, bool) {
	if s == nil {
		return nil, false
	}
	b, ok := s.bufs[id]
	return b, ok
}

// Fields returns the bound fields in bind order.
func (s *FieldSet) Fields() []schema.FieldID {
	if s == nil {
		return nil
	}
	out := make([]schema.FieldID, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of bound fields.
func (s *FieldSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// binding is a validated field of a session.
type binding struct {
	id      schema.FieldID
	ordinal int
	buf     Buffer
	vec     *colstore.Vector
}

// bind validates the set against proto and capacity. The result is ordered
// by prototype ordinal and does not alias the set, so later changes to the
// set do not affect an open session.
func (s *FieldSet) bind(proto *schema.Prototype, capacity int, writing bool) ([]binding, error) {
	if capacity <= 0 {
		return nil, invalidArgument("capacity %d, want > 0", capacity)
	}
	if s == nil {
		s = &FieldSet{}
	}

	out := make([]binding, 0, len(s.order))
	for _, id := range s.order {
		buf := s.bufs[id]
		if buf == nil {
			return nil, invalidField(id, "nil buffer")
		}
		if buf.Len() != capacity {
			return nil, invalidField(id, "buffer holds %d records, capacity is %d", buf.Len(), capacity)
		}
		f, ord, ok := proto.Lookup(id)
		if !ok {
			return nil, schemaMismatch(id, "not stored by this dataset")
		}
		if buf.kind() != f.Type.Kind {
			return nil, schemaMismatch(id, "%s buffer for %s field", buf.kind(), f.Type)
		}
		if !writing && !buf.covers(f.Type) {
			return nil, schemaMismatch(id, "buffer cannot hold values of %s", f.Type)
		}
		out = append(out, binding{id: id, ordinal: ord, buf: buf})
	}

	if writing {
		for _, f := range proto.Fields() {
			if !s.Has(f.ID) {
				return nil, invalidField(f.ID, "no buffer bound")
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ordinal < out[j].ordinal })
	return out, nil
}
