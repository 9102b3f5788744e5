package schema

import "fmt"

// Builder assembles a Prototype. A writer session creates one builder per
// dataset, seeds it with the declared fields, hands it to the caller's
// extension step and builds it exactly once.
type Builder struct {
	fields   []Field
	seen     map[FieldID]struct{}
	prefixes map[string]struct{}
	built    bool
}

// NewBuilder returns a builder seeded with base fields. Extension fields may
// only use one of the given prefixes.
func NewBuilder(prefixes []string, base ...Field) *Builder {
	b := &Builder{
		seen:     make(map[FieldID]struct{}, len(base)),
		prefixes: make(map[string]struct{}, len(prefixes)),
	}
	for _, p := range prefixes {
		b.prefixes[p] = struct{}{}
	}
	for _, f := range base {
		if _, dup := b.seen[f.ID]; dup {
			continue
		}
		b.seen[f.ID] = struct{}{}
		b.fields = append(b.fields, f)
	}
	return b
}

// Add appends a field.
func (b *Builder) Add(id FieldID, t Type) error {
	if b.built {
		return ErrFrozen
	}
	if err := validateName(id); err != nil {
		return err
	}
	if !IsStandard(id) {
		if _, ok := b.prefixes[id.Prefix()]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPrefix, id.Prefix())
		}
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("field %s: %w", id, err)
	}
	if _, dup := b.seen[id]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateField, id)
	}
	b.seen[id] = struct{}{}
	b.fields = append(b.fields, Field{ID: id, Type: t})
	return nil
}

// Has reports whether id has been added.
func (b *Builder) Has(id FieldID) bool {
	_, ok := b.seen[id]
	return ok
}

// Fields returns the fields added so far.
func (b *Builder) Fields() []Field {
	out := make([]Field, len(b.fields))
	copy(out, b.fields)
	return out
}

// Build freezes the builder and returns the prototype.
func (b *Builder) Build() (*Prototype, error) {
	if b.built {
		return nil, ErrFrozen
	}
	p, err := NewPrototype(b.fields...)
	if err != nil {
		return nil, err
	}
	b.built = true
	return p, nil
}
