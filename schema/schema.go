// Package schema describes the per-point record layout of a Data3D dataset.
//
// A Prototype is the ordered list of fields stored for every point. Readers
// validate requested fields against it; writers build it once, optionally
// extended by the caller, before the first record is stored.
package schema

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// FieldID names a point field. Standard fields use the ASTM E57 element
// names; extension fields use "prefix:name".
type FieldID string

// Standard point fields.
const (
	CartesianX            FieldID = "cartesianX"
	CartesianY            FieldID = "cartesianY"
	CartesianZ            FieldID = "cartesianZ"
	CartesianInvalidState FieldID = "cartesianInvalidState"

	SphericalRange        FieldID = "sphericalRange"
	SphericalAzimuth      FieldID = "sphericalAzimuth"
	SphericalElevation    FieldID = "sphericalElevation"
	SphericalInvalidState FieldID = "sphericalInvalidState"

	ColorRed       FieldID = "colorRed"
	ColorGreen     FieldID = "colorGreen"
	ColorBlue      FieldID = "colorBlue"
	IsColorInvalid FieldID = "isColorInvalid"

	Intensity          FieldID = "intensity"
	IsIntensityInvalid FieldID = "isIntensityInvalid"

	TimeStamp          FieldID = "timeStamp"
	IsTimeStampInvalid FieldID = "isTimeStampInvalid"

	RowIndex    FieldID = "rowIndex"
	ColumnIndex FieldID = "columnIndex"
	ReturnIndex FieldID = "returnIndex"
	ReturnCount FieldID = "returnCount"

	GroupKey FieldID = "groupKey"
)

// Group table fields. They are valid names but not point fields.
const (
	IDElementValue  FieldID = "idElementValue"
	StartPointIndex FieldID = "startPointIndex"
	PointCount      FieldID = "pointCount"
)

var standardFields = map[FieldID]struct{}{
	CartesianX: {}, CartesianY: {}, CartesianZ: {}, CartesianInvalidState: {},
	SphericalRange: {}, SphericalAzimuth: {}, SphericalElevation: {}, SphericalInvalidState: {},
	ColorRed: {}, ColorGreen: {}, ColorBlue: {}, IsColorInvalid: {},
	Intensity: {}, IsIntensityInvalid: {},
	TimeStamp: {}, IsTimeStampInvalid: {},
	RowIndex: {}, ColumnIndex: {}, ReturnIndex: {}, ReturnCount: {},
	GroupKey: {},
}

var groupFields = map[FieldID]struct{}{
	IDElementValue: {}, StartPointIndex: {}, PointCount: {},
}

// IsStandard reports whether id is one of the standard point fields.
func IsStandard(id FieldID) bool {
	_, ok := standardFields[id]
	return ok
}

// Prefix returns the extension prefix of id, or "" for unprefixed names.
func (id FieldID) Prefix() string {
	prefix, _, ok := strings.Cut(string(id), ":")
	if !ok {
		return ""
	}
	return prefix
}

var (
	// ErrInvalidName is returned for field names that are neither standard nor "prefix:name".
	ErrInvalidName = errors.New("schema: invalid field name")

	// ErrDuplicateField is returned when a field is declared twice.
	ErrDuplicateField = errors.New("schema: duplicate field")

	// ErrInvalidType is returned for malformed element types.
	ErrInvalidType = errors.New("schema: invalid element type")

	// ErrUnknownPrefix is returned when an extension field uses an unregistered prefix.
	ErrUnknownPrefix = errors.New("schema: unknown extension prefix")

	// ErrFrozen is returned when a builder is modified after Build.
	ErrFrozen = errors.New("schema: builder already built")
)

// Kind is the value domain of a field.
type Kind uint8

const (
	// KindFloat stores IEEE-754 values.
	KindFloat Kind = iota + 1
	// KindInteger stores signed integers within a declared range.
	KindInteger
	// KindBool stores flags.
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInteger:
		return "integer"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Precision selects the width of a float field.
type Precision uint8

const (
	// Double is 64-bit floating point.
	Double Precision = iota
	// Single is 32-bit floating point.
	Single
)

// Type is the element type of a field.
type Type struct {
	Kind      Kind      `json:"kind"`
	Precision Precision `json:"precision,omitempty"`
	Min       int64     `json:"min,omitempty"`
	Max       int64     `json:"max,omitempty"`
}

// Float64 returns a double precision float type.
func Float64() Type { return Type{Kind: KindFloat, Precision: Double} }

// Float32 returns a single precision float type.
func Float32() Type { return Type{Kind: KindFloat, Precision: Single} }

// Integer returns a signed integer type covering [min, max].
func Integer(min, max int64) Type { return Type{Kind: KindInteger, Min: min, Max: max} }

// Bool returns a boolean type.
func Bool() Type { return Type{Kind: KindBool} }

// Validate checks that t is well formed.
func (t Type) Validate() error {
	switch t.Kind {
	case KindFloat:
		if t.Precision != Double && t.Precision != Single {
			return fmt.Errorf("%w: precision %d", ErrInvalidType, t.Precision)
		}
	case KindInteger:
		if t.Min > t.Max {
			return fmt.Errorf("%w: integer range [%d, %d]", ErrInvalidType, t.Min, t.Max)
		}
	case KindBool:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidType, t.Kind)
	}
	return nil
}

// BitWidth returns the number of significant bits needed per value.
// Integer fields with a single possible value need zero bits.
func (t Type) BitWidth() int {
	switch t.Kind {
	case KindFloat:
		if t.Precision == Single {
			return 32
		}
		return 64
	case KindInteger:
		return bits.Len64(t.Span())
	case KindBool:
		return 1
	default:
		return 0
	}
}

// Span returns max-min of an integer type without overflow.
func (t Type) Span() uint64 {
	return uint64(t.Max) - uint64(t.Min)
}

// Contains reports whether v lies inside an integer type's range.
func (t Type) Contains(v int64) bool {
	return v >= t.Min && v <= t.Max
}

func (t Type) String() string {
	switch t.Kind {
	case KindFloat:
		if t.Precision == Single {
			return "float32"
		}
		return "float64"
	case KindInteger:
		return fmt.Sprintf("integer[%d,%d]", t.Min, t.Max)
	default:
		return t.Kind.String()
	}
}

// Field is a named, typed column of the point record.
type Field struct {
	ID   FieldID `json:"id"`
	Type Type    `json:"type"`
}

// IndexType is the integer type used for row/column/group indices when no
// explicit bound is known.
var IndexType = Integer(0, math.MaxUint32)

func validateName(id FieldID) error {
	if _, ok := groupFields[id]; ok || IsStandard(id) {
		return nil
	}
	prefix, name, ok := strings.Cut(string(id), ":")
	if !ok || !isIdent(prefix) || !isIdent(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, id)
	}
	return nil
}

// ValidPrefix reports whether prefix can name an extension namespace.
func ValidPrefix(prefix string) bool {
	return isIdent(prefix)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
