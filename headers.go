package e57go

import (
	"time"

	"github.com/hupe1980/e57go/internal/colstore"
	"github.com/hupe1980/e57go/internal/manifest"
)

// Header types of a container. They are stored in the manifest as is.
type (
	Root                          = manifest.Root
	DateTime                      = manifest.DateTime
	Data3D                        = manifest.Data3D
	Image2D                       = manifest.Image2D
	Quaternion                    = manifest.Quaternion
	Translation                   = manifest.Translation
	RigidBodyTransform            = manifest.RigidBodyTransform
	IndexBounds                   = manifest.IndexBounds
	CartesianBounds               = manifest.CartesianBounds
	SphericalBounds               = manifest.SphericalBounds
	IntensityLimits               = manifest.IntensityLimits
	ColorLimits                   = manifest.ColorLimits
	Grouping                      = manifest.Grouping
	Representation                = manifest.Representation
	VisualReferenceRepresentation = manifest.VisualReferenceRepresentation
	PinholeRepresentation         = manifest.PinholeRepresentation
	SphericalRepresentation       = manifest.SphericalRepresentation
	CylindricalRepresentation     = manifest.CylindricalRepresentation
	Projection                    = manifest.Projection
	ImageFormat                   = manifest.ImageFormat
	Extension                     = manifest.Extension
)

// Image projections.
const (
	ProjectionVisual      = manifest.ProjectionVisual
	ProjectionPinhole     = manifest.ProjectionPinhole
	ProjectionSpherical   = manifest.ProjectionSpherical
	ProjectionCylindrical = manifest.ProjectionCylindrical
)

// Image formats. ImageMaskPNG selects the mask blob of a representation.
const (
	ImageNone    = manifest.ImageNone
	ImageJPEG    = manifest.ImageJPEG
	ImagePNG     = manifest.ImagePNG
	ImageMaskPNG = manifest.ImageMaskPNG
)

// FormatName is the format name written into every root header.
const FormatName = manifest.FormatName

// NewDateTime converts a wall clock time into a GPS DateTime.
func NewDateTime(t time.Time) DateTime { return manifest.NewDateTime(t) }

// Identity returns the pose that leaves coordinates unchanged.
func Identity() RigidBodyTransform { return manifest.Identity() }

// Compression selects how column pages are compressed.
type Compression = colstore.Compression

// Supported compressions.
const (
	CompressionNone   = colstore.CompressionNone
	CompressionZstd   = colstore.CompressionZstd
	CompressionLZ4    = colstore.CompressionLZ4
	CompressionSnappy = colstore.CompressionSnappy
)

// ParseCompression returns the compression called name ("none", "zstd", "lz4", "snappy").
func ParseCompression(name string) (Compression, error) {
	c, err := colstore.ParseCompression(name)
	if err != nil {
		return 0, invalidArgument("%v", err)
	}
	return c, nil
}
