package schema

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Prototype is the immutable, ordered field layout of a dataset.
type Prototype struct {
	fields []Field
	index  map[FieldID]int
}

// NewPrototype validates fields and returns a prototype preserving their order.
func NewPrototype(fields ...Field) (*Prototype, error) {
	p := &Prototype{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[FieldID]int, len(fields)),
	}
	for _, f := range fields {
		if err := validateName(f.ID); err != nil {
			return nil, err
		}
		if err := f.Type.Validate(); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.ID, err)
		}
		if _, dup := p.index[f.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, f.ID)
		}
		p.index[f.ID] = len(p.fields)
		p.fields = append(p.fields, f)
	}
	return p, nil
}

// Len returns the number of fields.
func (p *Prototype) Len() int { return len(p.fields) }

// Fields returns a copy of the ordered fields.
func (p *Prototype) Fields() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Field returns the field at ordinal i.
func (p *Prototype) Field(i int) Field { return p.fields[i] }

// Lookup returns the field named id and its ordinal.
func (p *Prototype) Lookup(id FieldID) (Field, int, bool) {
	i, ok := p.index[id]
	if !ok {
		return Field{}, -1, false
	}
	return p.fields[i], i, true
}

// Has reports whether id is part of the prototype.
func (p *Prototype) Has(id FieldID) bool {
	_, ok := p.index[id]
	return ok
}

// IsCartesian reports whether points carry cartesian coordinates.
func (p *Prototype) IsCartesian() bool {
	return p.Has(CartesianX) || p.Has(CartesianY) || p.Has(CartesianZ)
}

// IsSpherical reports whether points carry spherical coordinates.
func (p *Prototype) IsSpherical() bool {
	return p.Has(SphericalRange) || p.Has(SphericalAzimuth) || p.Has(SphericalElevation)
}

// MarshalJSON encodes the prototype as its ordered field list.
func (p *Prototype) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.fields)
}

// UnmarshalJSON decodes and validates an ordered field list.
func (p *Prototype) UnmarshalJSON(data []byte) error {
	var fields []Field
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	decoded, err := NewPrototype(fields...)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}
