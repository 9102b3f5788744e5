package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/codec"
	"github.com/hupe1980/e57go/internal/colstore"
	"github.com/hupe1980/e57go/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManifest(t *testing.T) *Manifest {
	t.Helper()
	proto, err := schema.NewPrototype(
		schema.Field{ID: schema.CartesianX, Type: schema.Float64()},
		schema.Field{ID: "nor:normalX", Type: schema.Float32()},
	)
	require.NoError(t, err)

	m := New(Root{
		FormatName:       FormatName,
		GUID:             "root-guid",
		VersionMajor:     VersionMajor,
		VersionMinor:     VersionMinor,
		CreationDateTime: NewDateTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	})
	m.Extensions = []Extension{{Prefix: "nor", URI: "http://www.libe57.org/E57_NOR_surface_normals.txt"}}
	m.Attributes = Attributes{"nor:site": {Kind: AttrString, String: "north"}}
	m.Data3D = append(m.Data3D, Data3DEntry{
		Header: Data3D{
			GUID:        "scan-0",
			Name:        "scan 0",
			Pose:        &RigidBodyTransform{Rotation: Quaternion{W: 1}, Translation: Translation{X: 1}},
			Grouping:    &Grouping{IDElementName: schema.RowIndex},
			PointFields: proto.Fields(),
			PointCount:  3,
		},
		Prototype: proto,
		Points: Block{
			Blob: Data3DBlobName("scan-0"),
			Descriptor: colstore.Descriptor{
				Compression: colstore.CompressionSnappy,
				Records:     3,
				Pages:       []colstore.PageInfo{{Offset: 0, Length: 99, Records: 3}},
			},
		},
		Groups: &GroupTable{Block: Block{Blob: GroupsBlobName("scan-0")}, MaxPoints: 3},
	})
	m.Images2D = append(m.Images2D, Image2DEntry{
		Header: Image2D{
			GUID: "img-0",
			Pinhole: &PinholeRepresentation{
				Representation: Representation{Format: ImageJPEG, Width: 4, Height: 2, ImageSize: 100, MaskSize: 10},
				FocalLength:    0.05,
			},
		},
		Attributes: Attributes{"nor:exposure": {Kind: AttrFloat, Float: 0.25}},
	})
	return m
}

func TestStoreRoundTrip(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			ctx := context.Background()
			bs := blobstore.NewMemoryStore()
			s := NewStore(bs)

			_, err := s.Load(ctx)
			require.ErrorIs(t, err, ErrNotFound)

			m := testManifest(t)
			name, err := s.Save(ctx, m, c)
			require.NoError(t, err)
			assert.Contains(t, name, Dir)

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, m.Root, got.Root)
			assert.Equal(t, m.Extensions, got.Extensions)
			assert.Equal(t, m.Attributes, got.Attributes)
			assert.Equal(t, m.Images2D, got.Images2D)
			require.Len(t, got.Data3D, 1)
			assert.Equal(t, m.Data3D[0].Header, got.Data3D[0].Header)
			assert.Equal(t, m.Data3D[0].Points, got.Data3D[0].Points)
			assert.Equal(t, m.Data3D[0].Groups, got.Data3D[0].Groups)
			assert.Equal(t, m.Data3D[0].Prototype.Fields(), got.Data3D[0].Prototype.Fields())
		})
	}
}

func TestStoreSwapsCurrent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(blobstore.NewMemoryStore())

	m := testManifest(t)
	first, err := s.Save(ctx, m, nil)
	require.NoError(t, err)

	m.Root.CoordinateMetadata = "EPSG:25832"
	second, err := s.Save(ctx, m, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EPSG:25832", got.Root.CoordinateMetadata)

	old, err := s.LoadFrom(ctx, first)
	require.NoError(t, err)
	assert.Empty(t, old.Root.CoordinateMetadata)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, names)
}

func TestStoreDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	s := NewStore(bs)

	name, err := s.Save(ctx, testManifest(t), codec.GoJSON{})
	require.NoError(t, err)
	require.True(t, bs.Corrupt(name, envelopeHeader+20))

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStoreRejectsBadCurrent(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	require.NoError(t, bs.Put(ctx, CurrentFileName, []byte("../elsewhere")))

	_, err := NewStore(bs).Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStoreUnknownCodec(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	data, err := seal("msgpack", []byte{0x80})
	require.NoError(t, err)
	require.NoError(t, bs.Put(ctx, Dir+"x.json", data))
	require.NoError(t, bs.Put(ctx, CurrentFileName, []byte(Dir+"x.json")))

	_, err = NewStore(bs).Load(ctx)
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestStoreIncompatibleVersion(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	data, err := seal("json", []byte(`{"version":999,"data3D":[],"images2D":[]}`))
	require.NoError(t, err)
	require.NoError(t, bs.Put(ctx, Dir+"v.json", data))

	_, err = NewStore(bs).LoadFrom(ctx, Dir+"v.json")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestValidatePointCount(t *testing.T) {
	m := testManifest(t)
	m.Data3D[0].Header.PointCount = 4
	assert.ErrorIs(t, m.Validate(), ErrCorrupt)

	m = testManifest(t)
	m.Data3D[0].Header.Grouping.IDElementName = schema.Intensity
	assert.ErrorIs(t, m.Validate(), ErrCorrupt)
}

func TestDateTime(t *testing.T) {
	now := time.Date(2023, 3, 14, 15, 9, 26, 500_000_000, time.UTC)
	d := NewDateTime(now)
	assert.InDelta(t, 0, d.Time().Sub(now).Seconds(), 1e-6)
	assert.True(t, DateTime{}.Time().IsZero())
}

func TestImageBlobName(t *testing.T) {
	assert.Equal(t, "images/g/pinholeRepresentation.jpeg", ImageBlobName("g", ProjectionPinhole, ImageJPEG))
	assert.Equal(t, "images/g/sphericalRepresentation.mask.png", ImageBlobName("g", ProjectionSpherical, ImageMaskPNG))
}

func TestSplitKey(t *testing.T) {
	p, n, err := SplitKey("nor:site")
	require.NoError(t, err)
	assert.Equal(t, "nor", p)
	assert.Equal(t, "site", n)

	for _, bad := range []string{"site", ":x", "x:", "a:b:c"} {
		_, _, err := SplitKey(bad)
		assert.Error(t, err, bad)
	}
}
