package e57go

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w, err := Create(ctx, store, WithPageRecords(1))
	require.NoError(t, err)
	idx, err := w.NewData3D(Data3D{
		PointFields: xyzFields(),
		Grouping:    &Grouping{IDElementName: schema.ColumnIndex},
	})
	require.NoError(t, err)
	require.NoError(t, w.WriteGroups(ctx, idx, []int64{0, 1}, []int64{0, 10}, []int64{10, 5}))
	require.NoError(t, w.Close(ctx))

	r, err := Open(ctx, store)
	require.NoError(t, err)

	sizes, err := r.Data3DSizes(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sizes.GroupCount)
	assert.Equal(t, int64(10), sizes.MaxGroupPoints)
	assert.True(t, sizes.ColumnIndexGroups)

	keys, starts, counts := make([]int64, 2), make([]int64, 2), make([]int64, 2)
	n, err := r.ReadGroups(ctx, 0, keys, starts, counts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{0, 1}, keys)
	assert.Equal(t, []int64{0, 10}, starts)
	assert.Equal(t, []int64{10, 5}, counts)

	one := make([]int64, 1)
	n, err = r.ReadGroups(ctx, 0, one, make([]int64, 1), make([]int64, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{0}, one)

	starts1, counts1 := make([]int64, 1), make([]int64, 1)
	n, err = r.ReadGroupsAt(ctx, 0, 1, one, starts1, counts1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, one)
	assert.Equal(t, []int64{10}, starts1)
	assert.Equal(t, []int64{5}, counts1)

	n, err = r.ReadGroupsAt(ctx, 0, 2, one, starts1, counts1)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = r.ReadGroupsAt(ctx, 0, 3, one, starts1, counts1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.ReadGroupsAt(ctx, 0, -1, one, starts1, counts1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.ReadGroups(ctx, 0, one, make([]int64, 2), counts1)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = r.ReadGroups(ctx, 1, one, starts1, counts1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestGroupOrdering(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w, err := Create(ctx, store)
	require.NoError(t, err)
	idx, err := w.NewData3D(Data3D{PointFields: xyzFields()})
	require.NoError(t, err)

	err = w.WriteGroups(ctx, idx, []int64{0, 1}, []int64{0, 5}, []int64{10, 5})
	require.ErrorIs(t, err, ErrInvalidGroupOrdering)
	var oe *GroupOrderError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, &GroupOrderError{Group: 1, PrevEnd: 10, Start: 5}, oe)

	require.NoError(t, w.WriteGroups(ctx, idx, []int64{0}, []int64{0}, []int64{10}))

	// Overlap with a group of an earlier call.
	err = w.WriteGroups(ctx, idx, []int64{1}, []int64{5}, []int64{5})
	require.ErrorIs(t, err, ErrInvalidGroupOrdering)

	require.ErrorIs(t, w.WriteGroups(ctx, idx, []int64{1, 2}, []int64{10}, []int64{5}), ErrInvalidArgument)
	require.ErrorIs(t, w.WriteGroups(ctx, idx, []int64{1}, []int64{-4}, []int64{5}), ErrInvalidArgument)
	require.ErrorIs(t, w.WriteGroups(ctx, idx, []int64{1}, []int64{10}, []int64{-5}), ErrInvalidArgument)
	require.ErrorIs(t, w.WriteGroups(ctx, idx, []int64{1}, []int64{10}, []int64{math.MaxInt64}), ErrInvalidArgument)
	require.ErrorIs(t, w.WriteGroups(ctx, 4, []int64{1}, []int64{10}, []int64{5}), ErrIndexOutOfRange)

	// Gaps between groups are allowed.
	require.NoError(t, w.WriteGroups(ctx, idx, []int64{1, 7}, []int64{12, 20}, []int64{3, 0}))
	require.NoError(t, w.Close(ctx))

	r, err := Open(ctx, store)
	require.NoError(t, err)
	sizes, err := r.Data3DSizes(0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sizes.GroupCount)
	assert.False(t, sizes.ColumnIndexGroups)

	h, err := r.Data3D(0)
	require.NoError(t, err)
	require.NotNil(t, h.Grouping)
	assert.Equal(t, schema.RowIndex, h.Grouping.IDElementName)

	keys, starts, counts := make([]int64, 5), make([]int64, 5), make([]int64, 5)
	n, err := r.ReadGroups(ctx, 0, keys, starts, counts)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	assert.Equal(t, []int64{0, 1, 7}, keys[:n])
	assert.Equal(t, []int64{0, 12, 20}, starts[:n])
	assert.Equal(t, []int64{10, 3, 0}, counts[:n])
}

func TestNoGroups(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeScan(t, store, makeScan(10), 10)

	r, err := Open(ctx, store)
	require.NoError(t, err)
	sizes, err := r.Data3DSizes(0)
	require.NoError(t, err)
	assert.Zero(t, sizes.GroupCount)

	n, err := r.ReadGroups(ctx, 0, make([]int64, 4), make([]int64, 4), make([]int64, 4))
	require.NoError(t, err)
	assert.Zero(t, n)
}
