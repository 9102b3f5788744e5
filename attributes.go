package e57go

import (
	"fmt"
	"sort"

	"github.com/hupe1980/e57go/internal/manifest"
	"github.com/hupe1980/e57go/schema"
)

// AttributeReader reads the namespaced extension attributes of a container.
// Attribute keys have the form "prefix:name".
type AttributeReader struct {
	m *manifest.Manifest
}

// Extensions returns the registered extension namespaces.
func (a *AttributeReader) Extensions() []Extension {
	out := make([]Extension, len(a.m.Extensions))
	copy(out, a.m.Extensions)
	return out
}

// Root returns the attributes attached to the root. Values are string,
// int64 or float64.
func (a *AttributeReader) Root() map[string]any {
	return values(a.m.Attributes)
}

// Data3D returns the attributes attached to dataset index.
func (a *AttributeReader) Data3D(index int64) (map[string]any, error) {
	if index < 0 || index >= int64(len(a.m.Data3D)) {
		return nil, &IndexError{Kind: "data3D", Index: index, Count: int64(len(a.m.Data3D))}
	}
	return values(a.m.Data3D[index].Attributes), nil
}

// Image2D returns the attributes attached to image index.
func (a *AttributeReader) Image2D(index int64) (map[string]any, error) {
	if index < 0 || index >= int64(len(a.m.Images2D)) {
		return nil, &IndexError{Kind: "image2D", Index: index, Count: int64(len(a.m.Images2D))}
	}
	return values(a.m.Images2D[index].Attributes), nil
}

func values(attrs manifest.Attributes) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v.Value()
	}
	return out
}

// AttributeWriter attaches namespaced extension attributes. Only keys of a
// registered namespace are accepted, so standard header fields and session
// state cannot be overwritten through it.
type AttributeWriter struct {
	w *Writer
}

// RegisterExtension registers the namespace prefix with its defining uri.
// Registering the same prefix again with the same uri is a no-op.
func (a *AttributeWriter) RegisterExtension(prefix, uri string) error {
	if err := a.w.checkOpen(); err != nil {
		return err
	}
	if !schema.ValidPrefix(prefix) {
		return invalidArgument("invalid extension prefix %q", prefix)
	}
	if uri == "" {
		return invalidArgument("extension %s has no uri", prefix)
	}
	if have, ok := a.w.prefixes[prefix]; ok {
		if have != uri {
			return invalidArgument("extension %s already registered as %s", prefix, have)
		}
		return nil
	}
	a.w.prefixes[prefix] = uri
	a.w.m.Extensions = append(a.w.m.Extensions, Extension{Prefix: prefix, URI: uri})
	return nil
}

// SetRoot attaches an attribute to the root. value must be a string, an
// integer or a float.
func (a *AttributeWriter) SetRoot(key string, value any) error {
	if err := a.w.checkOpen(); err != nil {
		return err
	}
	return a.set(&a.w.m.Attributes, key, value)
}

// SetData3D attaches an attribute to dataset index.
func (a *AttributeWriter) SetData3D(index int64, key string, value any) error {
	_, entry, err := a.w.dataset(index)
	if err != nil {
		return err
	}
	return a.set(&entry.Attributes, key, value)
}

// SetImage2D attaches an attribute to image index.
func (a *AttributeWriter) SetImage2D(index int64, key string, value any) error {
	if _, err := a.w.Image2D(index); err != nil {
		return err
	}
	return a.set(&a.w.m.Images2D[index].Attributes, key, value)
}

func (a *AttributeWriter) set(dst *manifest.Attributes, key string, value any) error {
	prefix, _, err := manifest.SplitKey(key)
	if err != nil {
		return invalidArgument("%v", err)
	}
	if _, ok := a.w.prefixes[prefix]; !ok {
		return invalidArgument("attribute %s: extension prefix %q is not registered", key, prefix)
	}
	attr, err := toAttribute(value)
	if err != nil {
		return invalidArgument("attribute %s: %v", key, err)
	}
	if *dst == nil {
		*dst = make(manifest.Attributes)
	}
	(*dst)[key] = attr
	return nil
}

func toAttribute(value any) (manifest.Attribute, error) {
	switch v := value.(type) {
	case string:
		return manifest.Attribute{Kind: manifest.AttrString, String: v}, nil
	case int:
		return manifest.Attribute{Kind: manifest.AttrInteger, Integer: int64(v)}, nil
	case int8:
		return manifest.Attribute{Kind: manifest.AttrInteger, Integer: int64(v)}, nil
	case int16:
		return manifest.Attribute{Kind: manifest.AttrInteger, Integer: int64(v)}, nil
	case int32:
		return manifest.Attribute{Kind: manifest.AttrInteger, Integer: int64(v)}, nil
	case int64:
		return manifest.Attribute{Kind: manifest.AttrInteger, Integer: v}, nil
	case uint8:
		return manifest.Attribute{Kind: manifest.AttrInteger, Integer: int64(v)}, nil
	case uint16:
		return manifest.Attribute{Kind: manifest.AttrInteger, Integer: int64(v)}, nil
	case uint32:
		return manifest.Attribute{Kind: manifest.AttrInteger, Integer: int64(v)}, nil
	case float32:
		return manifest.Attribute{Kind: manifest.AttrFloat, Float: float64(v)}, nil
	case float64:
		return manifest.Attribute{Kind: manifest.AttrFloat, Float: v}, nil
	default:
		return manifest.Attribute{}, fmt.Errorf("unsupported value type %T", value)
	}
}

// prefixList returns the registered extension prefixes in sorted order.
func (w *Writer) prefixList() []string {
	out := make([]string, 0, len(w.prefixes))
	for p := range w.prefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
