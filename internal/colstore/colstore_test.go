package colstore

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/resource"
	"github.com/hupe1980/e57go/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrototype(t *testing.T) *schema.Prototype {
	t.Helper()
	p, err := schema.NewPrototype(
		schema.Field{ID: schema.CartesianX, Type: schema.Float64()},
		schema.Field{ID: schema.Intensity, Type: schema.Float32()},
		schema.Field{ID: schema.RowIndex, Type: schema.Integer(0, 1023)},
		schema.Field{ID: schema.CartesianInvalidState, Type: schema.Bool()},
	)
	require.NoError(t, err)
	return p
}

func testBatch(p *schema.Prototype, from, n int) []*Vector {
	batch := make([]*Vector, p.Len())
	for o, f := range p.Fields() {
		v := NewVector(f.Type, n)
		for i := from; i < from+n; i++ {
			switch o {
			case 0:
				v.F64 = append(v.F64, float64(i)*0.5)
			case 1:
				v.F32 = append(v.F32, float32(i%100))
			case 2:
				v.I64 = append(v.I64, int64(i%1024))
			case 3:
				v.B = append(v.B, i%7 == 0)
			}
		}
		batch[o] = v
	}
	return batch
}

func writeBlock(t *testing.T, store blobstore.BlobStore, p *schema.Prototype, c Compression, pageRecords int, calls ...int) Descriptor {
	t.Helper()
	ctx := context.Background()
	blob, err := store.Create(ctx, "points.blk")
	require.NoError(t, err)

	var flushed int
	w, err := NewWriter(blob, p, WriterOptions{
		Compression: c,
		PageRecords: pageRecords,
		OnFlush:     func(int, time.Duration) { flushed++ },
	})
	require.NoError(t, err)

	from := 0
	for _, n := range calls {
		require.NoError(t, w.Append(ctx, testBatch(p, from, n), n))
		from += n
	}
	assert.Equal(t, uint64(from), w.Records())

	desc, err := w.Close(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(desc.Pages), flushed)
	return desc
}

func TestWriterReaderRoundTrip(t *testing.T) {
	p := testPrototype(t)
	for c := range compressionNames {
		t.Run(c.String(), func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			desc := writeBlock(t, store, p, c, 100, 30, 250, 1, 19)
			assert.Equal(t, uint64(300), desc.Records)
			require.Len(t, desc.Pages, 3)
			assert.Equal(t, c, desc.Compression)

			blob, err := store.Open(context.Background(), "points.blk")
			require.NoError(t, err)
			rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
			r, err := NewReader(blob, p, desc, ReaderOptions{Resources: rc})
			require.NoError(t, err)

			want := testBatch(p, 0, 300)
			for i := 0; i < r.Pages(); i++ {
				page, err := r.ReadPage(context.Background(), i, []int{0, 1, 2, 3})
				require.NoError(t, err)
				start := int(r.PageStart(i))
				for o := range want {
					exp := NewVector(p.Field(o).Type, 0)
					exp.AppendRange(want[o], start, start+page.Records)
					assert.Equal(t, exp, page.Column(o), "page %d column %d", i, o)
				}
				assert.Positive(t, rc.MemoryUsage())
				page.Release()
				page.Release()
				assert.Zero(t, rc.MemoryUsage())
			}
		})
	}
}

func TestReaderSelectiveDecode(t *testing.T) {
	p := testPrototype(t)
	store := blobstore.NewMemoryStore()
	desc := writeBlock(t, store, p, CompressionZstd, 64, 64)

	blob, err := store.Open(context.Background(), "points.blk")
	require.NoError(t, err)

	var decodes int
	r, err := NewReader(blob, p, desc, ReaderOptions{OnDecode: func(int64, time.Duration) { decodes++ }})
	require.NoError(t, err)

	page, err := r.ReadPage(context.Background(), 0, []int{2})
	require.NoError(t, err)
	defer page.Release()
	assert.Nil(t, page.Column(0))
	assert.Len(t, page.Column(2).I64, 64)
	assert.Equal(t, 1, decodes)
}

func TestReaderLocate(t *testing.T) {
	p := testPrototype(t)
	store := blobstore.NewMemoryStore()
	desc := writeBlock(t, store, p, CompressionNone, 10, 25)

	blob, err := store.Open(context.Background(), "points.blk")
	require.NoError(t, err)
	r, err := NewReader(blob, p, desc, ReaderOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, r.Locate(0))
	assert.Equal(t, 0, r.Locate(9))
	assert.Equal(t, 1, r.Locate(10))
	assert.Equal(t, 2, r.Locate(24))
	assert.Equal(t, -1, r.Locate(25))
	assert.Equal(t, uint64(20), r.PageStart(2))
}

func TestReaderDetectsCorruption(t *testing.T) {
	p := testPrototype(t)
	store := blobstore.NewMemoryStore()
	desc := writeBlock(t, store, p, CompressionLZ4, 50, 100)

	require.True(t, store.Corrupt("points.blk", int(desc.Pages[1].Offset)+pageHeaderSize+3))

	blob, err := store.Open(context.Background(), "points.blk")
	require.NoError(t, err)
	rc := resource.NewController(resource.Config{})
	r, err := NewReader(blob, p, desc, ReaderOptions{Resources: rc})
	require.NoError(t, err)

	page, err := r.ReadPage(context.Background(), 0, []int{0})
	require.NoError(t, err)
	page.Release()

	_, err = r.ReadPage(context.Background(), 1, []int{0})
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Zero(t, rc.MemoryUsage())
}

func TestNewReaderValidatesDescriptor(t *testing.T) {
	p := testPrototype(t)
	store := blobstore.NewMemoryStore()
	desc := writeBlock(t, store, p, CompressionNone, 10, 20)
	blob, err := store.Open(context.Background(), "points.blk")
	require.NoError(t, err)

	bad := desc
	bad.Records = 21
	_, err = NewReader(blob, p, bad, ReaderOptions{})
	assert.ErrorIs(t, err, ErrCorrupt)

	bad = Descriptor{Records: desc.Records, Pages: []PageInfo{desc.Pages[1], desc.Pages[0]}}
	_, err = NewReader(blob, p, bad, ReaderOptions{})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestWriterEmptyBlock(t *testing.T) {
	p := testPrototype(t)
	store := blobstore.NewMemoryStore()
	desc := writeBlock(t, store, p, CompressionZstd, 10)
	assert.Zero(t, desc.Records)
	assert.Empty(t, desc.Pages)

	blob, err := store.Open(context.Background(), "points.blk")
	require.NoError(t, err)
	r, err := NewReader(blob, p, desc, ReaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, -1, r.Locate(0))
}

func TestWriterRejectsOutOfRange(t *testing.T) {
	p := testPrototype(t)
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	blob, err := store.Create(ctx, "points.blk")
	require.NoError(t, err)

	w, err := NewWriter(blob, p, WriterOptions{PageRecords: 1})
	require.NoError(t, err)

	batch := testBatch(p, 0, 1)
	batch[2].I64[0] = 5000
	assert.ErrorIs(t, w.Append(ctx, batch, 1), ErrOutOfRange)
	require.NoError(t, w.Abort())

	_, err = store.Open(ctx, "points.blk")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestNewWriterOptions(t *testing.T) {
	p := testPrototype(t)
	blob, err := blobstore.NewMemoryStore().Create(context.Background(), "x")
	require.NoError(t, err)

	_, err = NewWriter(blob, p, WriterOptions{Compression: 9})
	assert.Error(t, err)
	_, err = NewWriter(blob, p, WriterOptions{PageRecords: MaxPageRecords + 1})
	assert.Error(t, err)
}
