package e57go

import (
	"context"
	"math"

	"github.com/hupe1980/e57go/internal/colstore"
	"github.com/hupe1980/e57go/internal/manifest"
	"github.com/hupe1980/e57go/schema"
)

var (
	groupKeyType   = schema.Integer(math.MinInt64, math.MaxInt64)
	groupCountType = schema.Integer(0, math.MaxInt64)

	groupPrototype = mustPrototype(
		schema.Field{ID: schema.IDElementValue, Type: groupKeyType},
		schema.Field{ID: schema.StartPointIndex, Type: groupCountType},
		schema.Field{ID: schema.PointCount, Type: groupCountType},
	)
)

func mustPrototype(fields ...schema.Field) *schema.Prototype {
	p, err := schema.NewPrototype(fields...)
	if err != nil {
		panic(err)
	}
	return p
}

// groupTable accumulates the groups of one dataset until Close.
type groupTable struct {
	keys, starts, counts []int64
	maxPoints            int64
}

// end returns the first point index after the last group.
func (t *groupTable) end() int64 {
	n := len(t.starts)
	if n == 0 {
		return 0
	}
	return t.starts[n-1] + t.counts[n-1]
}

// WriteGroups appends groups to the group table of dataset index. keys,
// starts and counts are parallel and must have equal length. Groups must be
// in ascending start order and must not overlap each other or the groups of
// earlier calls; a violation fails with ErrInvalidGroupOrdering and nothing
// of the call is appended.
//
// A dataset without a declared Grouping is grouped by rowIndex. Groups become
// visible to readers when the Writer is closed.
func (w *Writer) WriteGroups(ctx context.Context, index int64, keys, starts, counts []int64) error {
	ds, entry, err := w.dataset(index)
	if err != nil {
		return err
	}
	first := int64(len(ds.groups.keys))
	err = ds.groups.append(keys, starts, counts)
	w.log.WithDataset(index).LogGroups(ctx, first, len(keys), err)
	if err != nil {
		return err
	}
	if entry.Header.Grouping == nil && len(keys) > 0 {
		entry.Header.Grouping = &Grouping{IDElementName: schema.RowIndex}
	}
	return nil
}

func (t *groupTable) append(keys, starts, counts []int64) error {
	if len(keys) != len(starts) || len(keys) != len(counts) {
		return invalidArgument("group buffers have lengths %d, %d, %d", len(keys), len(starts), len(counts))
	}

	prevEnd := t.end()
	base := int64(len(t.keys))
	for i := range keys {
		start, count := starts[i], counts[i]
		if start < 0 || count < 0 {
			return invalidArgument("group %d has start %d and count %d", base+int64(i), start, count)
		}
		if count > math.MaxInt64-start {
			return invalidArgument("group %d ends past the largest point index", base+int64(i))
		}
		if start < prevEnd {
			return &GroupOrderError{Group: base + int64(i), PrevEnd: prevEnd, Start: start}
		}
		prevEnd = start + count
	}

	t.keys = append(t.keys, keys...)
	t.starts = append(t.starts, starts...)
	t.counts = append(t.counts, counts...)
	for _, c := range counts {
		t.maxPoints = max(t.maxPoints, c)
	}
	return nil
}

// writeGroups stores the group table of dataset index as a column block.
func (w *Writer) writeGroups(ctx context.Context, index int64) error {
	t := &w.data[index].groups
	if len(t.keys) == 0 {
		return nil
	}
	entry := &w.m.Data3D[index]

	name := manifest.GroupsBlobName(entry.Header.GUID)
	blob, err := w.store.Create(ctx, name)
	if err != nil {
		return translateError(err)
	}
	block, err := colstore.NewWriter(blob, groupPrototype, colstore.WriterOptions{
		Compression: w.opts.compression,
		PageRecords: w.opts.pageRecords,
		Resources:   w.opts.resources,
	})
	if err != nil {
		_ = blob.Abort()
		return translateError(err)
	}

	batch := []*colstore.Vector{
		{Type: groupKeyType, I64: t.keys},
		{Type: groupCountType, I64: t.starts},
		{Type: groupCountType, I64: t.counts},
	}
	if err := block.Append(ctx, batch, len(t.keys)); err != nil {
		_ = block.Abort()
		return translateError(err)
	}
	desc, err := block.Close(ctx)
	if err != nil {
		return translateError(err)
	}
	w.written = append(w.written, name)

	entry.Groups = &manifest.GroupTable{
		Block:     manifest.Block{Blob: name, Descriptor: desc},
		MaxPoints: t.maxPoints,
	}
	return nil
}

// ReadGroups copies the first groups of dataset index into the parallel
// buffers keys, starts and counts. It returns the number of groups copied,
// min(len(keys), GroupCount); fewer than requested is not an error.
func (r *Reader) ReadGroups(ctx context.Context, index int64, keys, starts, counts []int64) (int, error) {
	return r.ReadGroupsAt(ctx, index, 0, keys, starts, counts)
}

// ReadGroupsAt is like ReadGroups but starts at group first. first may equal
// GroupCount, which yields 0.
func (r *Reader) ReadGroupsAt(ctx context.Context, index, first int64, keys, starts, counts []int64) (int, error) {
	log := r.opts.logger.WithDataset(index)
	n, err := r.readGroups(ctx, index, first, keys, starts, counts)
	log.LogGroups(ctx, first, n, err)
	return n, err
}

func (r *Reader) readGroups(ctx context.Context, index, first int64, keys, starts, counts []int64) (int, error) {
	d, err := r.data3D(index)
	if err != nil {
		return 0, err
	}
	if len(keys) != len(starts) || len(keys) != len(counts) {
		return 0, invalidArgument("group buffers have lengths %d, %d, %d", len(keys), len(starts), len(counts))
	}

	var total int64
	if d.Groups != nil {
		total = int64(d.Groups.Records)
	}
	if first < 0 || first > total {
		return 0, &IndexError{Kind: "group", Index: first, Count: total}
	}
	n := int(min(int64(len(keys)), total-first))
	if n == 0 {
		return 0, nil
	}

	blob, err := r.openBlob(ctx, d.Groups.Blob)
	if err != nil {
		return 0, err
	}
	defer blob.Close()

	block, err := colstore.NewReader(blob, groupPrototype, d.Groups.Descriptor, colstore.ReaderOptions{
		Resources: r.opts.resources,
		OnDecode:  r.opts.metricsCollector.RecordPageDecode,
	})
	if err != nil {
		return 0, translateError(err)
	}

	ordinals := []int{0, 1, 2}
	for done := 0; done < n; {
		pos := first + int64(done)
		i := block.Locate(uint64(pos))
		page, err := block.ReadPage(ctx, i, ordinals)
		if err != nil {
			return 0, translateError(err)
		}
		off := int(pos - int64(block.PageStart(i)))
		take := min(n-done, page.Records-off)
		copy(keys[done:done+take], page.Column(0).I64[off:off+take])
		copy(starts[done:done+take], page.Column(1).I64[off:off+take])
		copy(counts[done:done+take], page.Column(2).I64[off:off+take])
		page.Release()
		done += take
	}
	return n, nil
}
