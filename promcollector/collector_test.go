package promcollector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/e57go"
	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg, "e57")
	require.NoError(t, err)

	c.RecordPointRead(10, time.Millisecond, nil)
	c.RecordPointRead(5, time.Millisecond, errors.New("boom"))
	c.RecordPointWrite(7, time.Millisecond, nil)
	c.RecordImageWrite(100, time.Millisecond, nil)
	c.RecordImageRead(0, time.Millisecond, errors.New("boom"))
	c.RecordPageDecode(4096, time.Microsecond)

	assert.Equal(t, 10.0, testutil.ToFloat64(c.records.WithLabelValues("read")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.records.WithLabelValues("write")))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.imageBytes.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.imageOps.WithLabelValues("read", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pagesDecoded))
	assert.Equal(t, 4096.0, testutil.ToFloat64(c.pageBytes))
	assert.Equal(t, 3, testutil.CollectAndCount(c.transfers))
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "e57")
	require.NoError(t, err)

	_, err = New(reg, "e57")
	var are prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &are)

	_, err = New(reg, "other")
	require.NoError(t, err)
}

func TestCollectorWithContainer(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c, err := New(reg, "e57")
	require.NoError(t, err)

	store := blobstore.NewMemoryStore()
	w, err := e57go.Create(ctx, store, e57go.WithMetricsCollector(c), e57go.WithPageRecords(16))
	require.NoError(t, err)
	idx, err := w.NewData3D(e57go.Data3D{PointFields: []schema.Field{{ID: schema.Intensity, Type: schema.Float32()}}})
	require.NoError(t, err)

	values := make([]float32, 32)
	for i := range values {
		values[i] = float32(i) / 32
	}
	pw, err := w.OpenPointWriter(ctx, idx, e57go.NewFieldSet().Bind(schema.Intensity, e57go.Floats(values)), len(values))
	require.NoError(t, err)
	_, err = pw.Transfer(ctx, len(values))
	require.NoError(t, err)
	require.NoError(t, w.Close(ctx))

	r, err := e57go.Open(ctx, store, e57go.WithMetricsCollector(c))
	require.NoError(t, err)
	got := make([]float32, 32)
	pr, err := r.OpenPointReader(ctx, 0, e57go.NewFieldSet().Bind(schema.Intensity, e57go.Floats(got)), len(got))
	require.NoError(t, err)
	defer pr.Close()
	_, err = pr.Transfer(ctx)
	require.NoError(t, err)
	assert.Equal(t, values, got)

	assert.Equal(t, 32.0, testutil.ToFloat64(c.records.WithLabelValues("write")))
	assert.Equal(t, 32.0, testutil.ToFloat64(c.records.WithLabelValues("read")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pagesDecoded))

	n, err := testutil.GatherAndCount(reg, "e57_pages_decoded_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
