package manifest

import (
	"fmt"
	"path"

	"github.com/hupe1980/e57go/internal/colstore"
	"github.com/hupe1980/e57go/schema"
)

const (
	// CurrentFileName is the pointer blob naming the committed manifest.
	CurrentFileName = "CURRENT"
	// Dir holds the manifest blobs.
	Dir = "manifest/"
	// CurrentVersion is the version of the manifest document.
	CurrentVersion = 1
)

// Manifest is the root document of a container.
type Manifest struct {
	Version    int            `json:"version"`
	Root       Root           `json:"root"`
	Extensions []Extension    `json:"extensions,omitempty"`
	Attributes Attributes     `json:"attributes,omitempty"`
	Data3D     []Data3DEntry  `json:"data3D"`
	Images2D   []Image2DEntry `json:"images2D"`
}

// New returns an empty manifest for root.
func New(root Root) *Manifest {
	return &Manifest{
		Version:  CurrentVersion,
		Root:     root,
		Data3D:   []Data3DEntry{},
		Images2D: []Image2DEntry{},
	}
}

// Extension registers a namespace prefix for extension fields and attributes.
type Extension struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
}

// Block locates a column block blob and its page index.
type Block struct {
	Blob string `json:"blob"`
	colstore.Descriptor
}

// GroupTable is the persisted group index of a scan.
type GroupTable struct {
	Block
	// MaxPoints is the largest pointCount of any group.
	MaxPoints int64 `json:"maxPoints"`
}

// Data3DEntry is one scan.
type Data3DEntry struct {
	Header     Data3D            `json:"header"`
	Prototype  *schema.Prototype `json:"prototype"`
	Points     Block             `json:"points"`
	Groups     *GroupTable       `json:"groups,omitempty"`
	Attributes Attributes        `json:"attributes,omitempty"`
}

// Image2DEntry is one camera image.
type Image2DEntry struct {
	Header     Image2D    `json:"header"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// Data3DBlobName returns the points block name of the scan with guid.
func Data3DBlobName(guid string) string {
	return path.Join("data3d", guid, "points.blk")
}

// GroupsBlobName returns the group table name of the scan with guid.
func GroupsBlobName(guid string) string {
	return path.Join("data3d", guid, "groups.blk")
}

// ImageBlobName returns the blob holding one image or mask representation.
func ImageBlobName(guid string, p Projection, f ImageFormat) string {
	return path.Join("images", guid, fmt.Sprintf("%s.%s", p, f))
}

// Validate checks cross references that the codec cannot.
func (m *Manifest) Validate() error {
	if m.Version != CurrentVersion {
		return fmt.Errorf("%w: %d", ErrIncompatibleVersion, m.Version)
	}
	for i, d := range m.Data3D {
		if d.Prototype == nil {
			return fmt.Errorf("%w: data3D %d has no prototype", ErrCorrupt, i)
		}
		if d.Header.PointCount < 0 || uint64(d.Header.PointCount) != d.Points.Records {
			return fmt.Errorf("%w: data3D %d declares %d points, block holds %d",
				ErrCorrupt, i, d.Header.PointCount, d.Points.Records)
		}
		if err := d.Header.Grouping.Validate(); err != nil {
			return fmt.Errorf("%w: data3D %d: %w", ErrCorrupt, i, err)
		}
	}
	return nil
}
