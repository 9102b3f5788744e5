package e57go

import (
	"fmt"

	"github.com/hupe1980/e57go/internal/manifest"
	"github.com/hupe1980/e57go/schema"
)

// Data3DSizes are the cardinalities of a dataset needed to size buffers.
type Data3DSizes struct {
	// RowMax and ColumnMax are the extents of the row and column indices,
	// or 0 when the dataset is not gridded.
	RowMax    int64
	ColumnMax int64

	PointCount int64

	GroupCount int64
	// MaxGroupPoints is the largest point count of any group.
	MaxGroupPoints int64
	// ColumnIndexGroups reports that group keys are column indices rather
	// than row indices.
	ColumnIndexGroups bool
}

// Data3DSizes returns the cardinalities of dataset index.
func (r *Reader) Data3DSizes(index int64) (Data3DSizes, error) {
	d, err := r.data3D(index)
	if err != nil {
		return Data3DSizes{}, err
	}

	s := Data3DSizes{PointCount: d.Header.PointCount}
	if b := d.Header.IndexBounds; b != nil {
		if d.Prototype.Has(schema.RowIndex) {
			s.RowMax = b.RowMaximum - b.RowMinimum + 1
		}
		if d.Prototype.Has(schema.ColumnIndex) {
			s.ColumnMax = b.ColumnMaximum - b.ColumnMinimum + 1
		}
	}
	if g := d.Groups; g != nil {
		s.GroupCount = int64(g.Records)
		s.MaxGroupPoints = g.MaxPoints
	}
	if d.Header.Grouping != nil {
		s.ColumnIndexGroups = d.Header.Grouping.IDElementName == schema.ColumnIndex
	}
	return s, nil
}

// Image2DSizes describes one image representation.
type Image2DSizes struct {
	Projection Projection
	Format     ImageFormat
	Width      int64
	Height     int64
	// Size is the image blob size in bytes.
	Size int64
	// MaskFormat is ImageMaskPNG when the representation has a mask and
	// ImageNone otherwise.
	MaskFormat ImageFormat
	MaskSize   int64
}

// Image2DSizes returns the sizes of the projection representation of image
// index. A projection the image lacks fails with ErrSchemaMismatch.
func (r *Reader) Image2DSizes(index int64, projection Projection) (Image2DSizes, error) {
	img, err := r.image2D(index)
	if err != nil {
		return Image2DSizes{}, err
	}
	rep, err := representation(&img.Header, projection)
	if err != nil {
		return Image2DSizes{}, err
	}

	s := Image2DSizes{
		Projection: projection,
		Format:     rep.Format,
		Width:      rep.Width,
		Height:     rep.Height,
		Size:       rep.ImageSize,
		MaskFormat: ImageNone,
		MaskSize:   rep.MaskSize,
	}
	if rep.MaskSize > 0 {
		s.MaskFormat = ImageMaskPNG
	}
	return s, nil
}

// Image2DProjections lists the representations image index carries.
func (r *Reader) Image2DProjections(index int64) ([]Projection, error) {
	img, err := r.image2D(index)
	if err != nil {
		return nil, err
	}
	var out []Projection
	for _, p := range manifest.Projections {
		if img.Header.Representation(p) != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func representation(h *Image2D, p Projection) (*Representation, error) {
	rep := h.Representation(p)
	if rep == nil {
		return nil, fmt.Errorf("%w: image %s has no %s", ErrSchemaMismatch, h.GUID, p)
	}
	return rep, nil
}
