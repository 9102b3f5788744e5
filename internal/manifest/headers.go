package manifest

import (
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/e57go/schema"
)

// FormatName is the format name carried by every root document.
const FormatName = "ASTM E57 3D Imaging Data File"

// Format version written by this library.
const (
	VersionMajor = 1
	VersionMinor = 0
)

var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// gpsLeapSeconds is the GPS-UTC offset since 2017-01-01.
const gpsLeapSeconds = 18

// DateTime is a GPS timestamp in seconds since the GPS epoch.
type DateTime struct {
	GPSTime               float64 `json:"gpsTime"`
	AtomicClockReferenced bool    `json:"atomicClockReferenced,omitempty"`
}

// NewDateTime converts a wall clock time.
func NewDateTime(t time.Time) DateTime {
	return DateTime{GPSTime: t.Sub(gpsEpoch).Seconds() + gpsLeapSeconds}
}

// Time converts back to a wall clock time. The zero DateTime maps to the zero time.
func (d DateTime) Time() time.Time {
	if d.GPSTime == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(d.GPSTime - gpsLeapSeconds)
	return gpsEpoch.Add(time.Duration(sec)*time.Second + time.Duration(frac*float64(time.Second)))
}

// Root is the file-level header.
type Root struct {
	FormatName         string   `json:"formatName"`
	GUID               string   `json:"guid"`
	VersionMajor       int      `json:"versionMajor"`
	VersionMinor       int      `json:"versionMinor"`
	LibraryVersion     string   `json:"e57LibraryVersion,omitempty"`
	CoordinateMetadata string   `json:"coordinateMetadata,omitempty"`
	CreationDateTime   DateTime `json:"creationDateTime"`
}

// Quaternion is a unit rotation quaternion.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Translation is an offset in meters.
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RigidBodyTransform places local coordinates into the file coordinate system.
type RigidBodyTransform struct {
	Rotation    Quaternion  `json:"rotation"`
	Translation Translation `json:"translation"`
}

// Identity returns the transform that leaves coordinates unchanged.
func Identity() RigidBodyTransform {
	return RigidBodyTransform{Rotation: Quaternion{W: 1}}
}

// IndexBounds holds the extent of rowIndex, columnIndex and returnIndex.
type IndexBounds struct {
	RowMinimum    int64 `json:"rowMinimum"`
	RowMaximum    int64 `json:"rowMaximum"`
	ColumnMinimum int64 `json:"columnMinimum"`
	ColumnMaximum int64 `json:"columnMaximum"`
	ReturnMinimum int64 `json:"returnMinimum"`
	ReturnMaximum int64 `json:"returnMaximum"`
}

// CartesianBounds is the bounding box of the cartesian coordinates.
type CartesianBounds struct {
	XMinimum float64 `json:"xMinimum"`
	XMaximum float64 `json:"xMaximum"`
	YMinimum float64 `json:"yMinimum"`
	YMaximum float64 `json:"yMaximum"`
	ZMinimum float64 `json:"zMinimum"`
	ZMaximum float64 `json:"zMaximum"`
}

// SphericalBounds is the extent of the spherical coordinates.
type SphericalBounds struct {
	RangeMinimum     float64 `json:"rangeMinimum"`
	RangeMaximum     float64 `json:"rangeMaximum"`
	ElevationMinimum float64 `json:"elevationMinimum"`
	ElevationMaximum float64 `json:"elevationMaximum"`
	AzimuthStart     float64 `json:"azimuthStart"`
	AzimuthEnd       float64 `json:"azimuthEnd"`
}

// IntensityLimits is the range of the intensity field.
type IntensityLimits struct {
	IntensityMinimum float64 `json:"intensityMinimum"`
	IntensityMaximum float64 `json:"intensityMaximum"`
}

// ColorLimits is the range of the color fields.
type ColorLimits struct {
	ColorRedMinimum   float64 `json:"colorRedMinimum"`
	ColorRedMaximum   float64 `json:"colorRedMaximum"`
	ColorGreenMinimum float64 `json:"colorGreenMinimum"`
	ColorGreenMaximum float64 `json:"colorGreenMaximum"`
	ColorBlueMinimum  float64 `json:"colorBlueMinimum"`
	ColorBlueMaximum  float64 `json:"colorBlueMaximum"`
}

// Grouping declares a group table. IDElementName is rowIndex or columnIndex.
type Grouping struct {
	IDElementName schema.FieldID `json:"idElementName"`
}

// Validate checks the addressing mode.
func (g *Grouping) Validate() error {
	if g == nil {
		return nil
	}
	if g.IDElementName != schema.RowIndex && g.IDElementName != schema.ColumnIndex {
		return fmt.Errorf("grouping by %q, want %s or %s", g.IDElementName, schema.RowIndex, schema.ColumnIndex)
	}
	return nil
}

// Data3D is the header of one scan.
type Data3D struct {
	GUID          string   `json:"guid"`
	Name          string   `json:"name,omitempty"`
	Description   string   `json:"description,omitempty"`
	OriginalGUIDs []string `json:"originalGuids,omitempty"`

	SensorVendor          string `json:"sensorVendor,omitempty"`
	SensorModel           string `json:"sensorModel,omitempty"`
	SensorSerialNumber    string `json:"sensorSerialNumber,omitempty"`
	SensorHardwareVersion string `json:"sensorHardwareVersion,omitempty"`
	SensorSoftwareVersion string `json:"sensorSoftwareVersion,omitempty"`
	SensorFirmwareVersion string `json:"sensorFirmwareVersion,omitempty"`

	Temperature         float64 `json:"temperature,omitempty"`
	RelativeHumidity    float64 `json:"relativeHumidity,omitempty"`
	AtmosphericPressure float64 `json:"atmosphericPressure,omitempty"`

	AcquisitionStart DateTime `json:"acquisitionStart"`
	AcquisitionEnd   DateTime `json:"acquisitionEnd"`

	Pose            *RigidBodyTransform `json:"pose,omitempty"`
	IndexBounds     *IndexBounds        `json:"indexBounds,omitempty"`
	CartesianBounds *CartesianBounds    `json:"cartesianBounds,omitempty"`
	SphericalBounds *SphericalBounds    `json:"sphericalBounds,omitempty"`
	IntensityLimits *IntensityLimits    `json:"intensityLimits,omitempty"`
	ColorLimits     *ColorLimits        `json:"colorLimits,omitempty"`
	Grouping        *Grouping           `json:"pointGroupingSchemes,omitempty"`

	// PointFields declares the stored per-point fields in order.
	PointFields []schema.Field `json:"pointFields"`

	// PointCount is fixed when the point writer closes.
	PointCount int64 `json:"pointCount"`
}

// Projection selects one image representation.
type Projection uint8

const (
	// ProjectionVisual is the visual reference representation.
	ProjectionVisual Projection = iota + 1
	// ProjectionPinhole is the pinhole camera representation.
	ProjectionPinhole
	// ProjectionSpherical is the spherical panorama representation.
	ProjectionSpherical
	// ProjectionCylindrical is the cylindrical panorama representation.
	ProjectionCylindrical
)

// Projections lists every projection in slot order.
var Projections = []Projection{ProjectionVisual, ProjectionPinhole, ProjectionSpherical, ProjectionCylindrical}

func (p Projection) String() string {
	switch p {
	case ProjectionVisual:
		return "visualReferenceRepresentation"
	case ProjectionPinhole:
		return "pinholeRepresentation"
	case ProjectionSpherical:
		return "sphericalRepresentation"
	case ProjectionCylindrical:
		return "cylindricalRepresentation"
	default:
		return fmt.Sprintf("projection(%d)", uint8(p))
	}
}

// ImageFormat tags the encoding of an image blob.
type ImageFormat uint8

const (
	// ImageNone marks an absent blob.
	ImageNone ImageFormat = iota
	// ImageJPEG is a JPEG image.
	ImageJPEG
	// ImagePNG is a PNG image.
	ImagePNG
	// ImageMaskPNG is a PNG mask.
	ImageMaskPNG
)

func (f ImageFormat) String() string {
	switch f {
	case ImageNone:
		return "none"
	case ImageJPEG:
		return "jpeg"
	case ImagePNG:
		return "png"
	case ImageMaskPNG:
		return "mask.png"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// Representation is the part common to every image representation.
type Representation struct {
	Format    ImageFormat `json:"format"`
	Width     int64       `json:"imageWidth"`
	Height    int64       `json:"imageHeight"`
	ImageSize int64       `json:"imageSize"`
	MaskSize  int64       `json:"maskSize,omitempty"`
}

// VisualReferenceRepresentation is an image for display only.
type VisualReferenceRepresentation struct {
	Representation
}

// PinholeRepresentation is an image taken by a pinhole camera.
type PinholeRepresentation struct {
	Representation
	FocalLength     float64 `json:"focalLength"`
	PixelWidth      float64 `json:"pixelWidth"`
	PixelHeight     float64 `json:"pixelHeight"`
	PrincipalPointX float64 `json:"principalPointX"`
	PrincipalPointY float64 `json:"principalPointY"`
}

// SphericalRepresentation is a spherical panorama.
type SphericalRepresentation struct {
	Representation
	PixelWidth  float64 `json:"pixelWidth"`
	PixelHeight float64 `json:"pixelHeight"`
}

// CylindricalRepresentation is a cylindrical panorama.
type CylindricalRepresentation struct {
	Representation
	Radius          float64 `json:"radius"`
	PrincipalPointY float64 `json:"principalPointY"`
	PixelWidth      float64 `json:"pixelWidth"`
	PixelHeight     float64 `json:"pixelHeight"`
}

// Image2D is the header of one camera image.
type Image2D struct {
	GUID                 string   `json:"guid"`
	Name                 string   `json:"name,omitempty"`
	Description          string   `json:"description,omitempty"`
	AssociatedData3DGUID string   `json:"associatedData3DGuid,omitempty"`
	AcquisitionDateTime  DateTime `json:"acquisitionDateTime"`

	SensorVendor       string `json:"sensorVendor,omitempty"`
	SensorModel        string `json:"sensorModel,omitempty"`
	SensorSerialNumber string `json:"sensorSerialNumber,omitempty"`

	Pose *RigidBodyTransform `json:"pose,omitempty"`

	Visual      *VisualReferenceRepresentation `json:"visualReferenceRepresentation,omitempty"`
	Pinhole     *PinholeRepresentation         `json:"pinholeRepresentation,omitempty"`
	Spherical   *SphericalRepresentation       `json:"sphericalRepresentation,omitempty"`
	Cylindrical *CylindricalRepresentation     `json:"cylindricalRepresentation,omitempty"`
}

// Representation returns the common part of projection p, or nil if absent.
func (h *Image2D) Representation(p Projection) *Representation {
	switch p {
	case ProjectionVisual:
		if h.Visual != nil {
			return &h.Visual.Representation
		}
	case ProjectionPinhole:
		if h.Pinhole != nil {
			return &h.Pinhole.Representation
		}
	case ProjectionSpherical:
		if h.Spherical != nil {
			return &h.Spherical.Representation
		}
	case ProjectionCylindrical:
		if h.Cylindrical != nil {
			return &h.Cylindrical.Representation
		}
	}
	return nil
}
