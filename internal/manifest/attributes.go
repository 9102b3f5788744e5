package manifest

import (
	"fmt"
	"strings"
)

// AttrKind is the value type of an attribute.
type AttrKind string

// Attribute kinds.
const (
	AttrString  AttrKind = "string"
	AttrInteger AttrKind = "integer"
	AttrFloat   AttrKind = "float"
)

// Attribute is one namespaced scalar value.
type Attribute struct {
	Kind    AttrKind `json:"kind"`
	String  string   `json:"string,omitempty"`
	Integer int64    `json:"integer,omitempty"`
	Float   float64  `json:"float,omitempty"`
}

// Value returns the attribute as a string, int64 or float64.
func (a Attribute) Value() any {
	switch a.Kind {
	case AttrInteger:
		return a.Integer
	case AttrFloat:
		return a.Float
	default:
		return a.String
	}
}

// Attributes maps "prefix:name" keys to values.
type Attributes map[string]Attribute

// SplitKey returns the prefix and name of a namespaced key.
func SplitKey(key string) (prefix, name string, err error) {
	prefix, name, ok := strings.Cut(key, ":")
	if !ok || prefix == "" || name == "" || strings.Contains(name, ":") {
		return "", "", fmt.Errorf("attribute key %q is not prefix:name", key)
	}
	return prefix, name, nil
}
