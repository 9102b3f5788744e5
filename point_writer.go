package e57go

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/e57go/internal/colstore"
	"github.com/hupe1980/e57go/internal/manifest"
	"github.com/hupe1980/e57go/schema"
)

// PointWriter appends records from the buffers of a FieldSet to one dataset.
// There is no fixed total: the dataset's point count becomes the sum of all
// transferred counts when the session closes.
//
// A PointWriter is not safe for concurrent use.
type PointWriter struct {
	w        *Writer
	index    int64
	ds       *dataset
	proto    *schema.Prototype
	bindings []binding
	batch    []*colstore.Vector
	capacity int
	blobName string
	block    *colstore.Writer
	bounds   *bounds
	count    int64

	err    error
	closed bool
	log    *Logger
}

// OpenPointWriter opens the write session of dataset index. A dataset has
// exactly one point writer; opening a second fails with ErrInvalidArgument.
//
// The schema extension given by WithSchemaExtension runs once, before any
// record is written, and its fields become part of the dataset. Every field
// of the resulting schema must be bound to a buffer of exactly capacity
// records.
func (w *Writer) OpenPointWriter(ctx context.Context, index int64, fields *FieldSet, capacity int, optFns ...SessionOption) (*PointWriter, error) {
	log := w.log.WithDataset(index).WithSession("write")
	s, err := w.openPointWriter(ctx, index, fields, capacity, optFns, log)
	log.LogSessionOpen(ctx, fields.Len(), capacity, 0, err)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (w *Writer) openPointWriter(ctx context.Context, index int64, fields *FieldSet, capacity int, optFns []SessionOption, log *Logger) (*PointWriter, error) {
	ds, entry, err := w.dataset(index)
	if err != nil {
		return nil, err
	}
	if ds.session != nil {
		return nil, invalidArgument("data3D %d already has a point writer", index)
	}

	var so sessionOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&so)
		}
	}

	b := schema.NewBuilder(w.prefixList(), ds.proto.Fields()...)
	if so.extend != nil {
		if err := so.extend(b); err != nil {
			return nil, fmt.Errorf("%w: schema extension: %w", ErrInvalidArgument, err)
		}
	}
	proto, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if proto.Len() == 0 {
		return nil, invalidArgument("data3D %d declares no point fields", index)
	}

	bindings, err := fields.bind(proto, capacity, true)
	if err != nil {
		return nil, err
	}

	name := manifest.Data3DBlobName(entry.Header.GUID)
	blob, err := w.store.Create(ctx, name)
	if err != nil {
		return nil, translateError(err)
	}
	block, err := colstore.NewWriter(blob, proto, colstore.WriterOptions{
		Compression: w.opts.compression,
		PageRecords: w.opts.pageRecords,
		Resources:   w.opts.resources,
	})
	if err != nil {
		_ = blob.Abort()
		return nil, translateError(err)
	}

	s := &PointWriter{
		w:        w,
		index:    index,
		ds:       ds,
		proto:    proto,
		bindings: bindings,
		batch:    make([]*colstore.Vector, proto.Len()),
		capacity: capacity,
		blobName: name,
		block:    block,
		bounds:   newBounds(proto, &entry.Header),
		log:      log,
	}
	for i := range s.bindings {
		b := &s.bindings[i]
		b.vec = colstore.NewVector(proto.Field(b.ordinal).Type, capacity)
		s.batch[b.ordinal] = b.vec
	}

	ds.proto = proto
	ds.session = s
	entry.Prototype = proto
	entry.Header.PointFields = proto.Fields()
	return s, nil
}

// Transfer appends records [0, count) of the bound buffers, in buffer order,
// and returns count. A count of 0 is a no-op. An integer value outside its
// field's declared range fails with ErrInvalidArgument and nothing of the
// call is appended.
//
// A storage fault poisons the session: the failing call and every later one
// return the same error.
func (s *PointWriter) Transfer(ctx context.Context, count int) (int, error) {
	if s.closed {
		return 0, ErrSessionClosed
	}
	if s.err != nil {
		return 0, s.err
	}
	if count < 0 || count > s.capacity {
		return 0, invalidArgument("count %d outside [0, %d]", count, s.capacity)
	}
	if count == 0 {
		return 0, nil
	}

	start := time.Now()
	err := s.transfer(ctx, count)
	s.w.opts.metricsCollector.RecordPointWrite(count, time.Since(start), err)
	s.log.LogTransfer(ctx, count, s.count, err)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PointWriter) transfer(ctx context.Context, count int) error {
	for _, b := range s.bindings {
		b.vec.Reset()
		if err := b.buf.store(b.vec, count); err != nil {
			return invalidField(b.id, "%v", err)
		}
	}

	if err := s.block.Append(ctx, s.batch, count); err != nil {
		s.err = translateError(err)
		return s.err
	}
	s.bounds.observe(s.batch, count)
	s.count += int64(count)
	return nil
}

// Position returns the number of records written so far.
func (s *PointWriter) Position() int64 { return s.count }

// Capacity returns the maximum number of records per Transfer.
func (s *PointWriter) Capacity() int { return s.capacity }

// Close flushes the last page, finalizes the column block and fixes the
// dataset's point count. It is safe to call multiple times. Closing a session
// without any Transfer produces a valid empty dataset.
func (s *PointWriter) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.err != nil {
		_ = s.block.Abort()
		s.ds.err = s.err
		s.log.LogSessionClose(ctx, s.count, s.err)
		return s.err
	}

	desc, err := s.block.Close(ctx)
	if err != nil {
		err = translateError(err)
		s.err, s.ds.err = err, err
		s.log.LogSessionClose(ctx, s.count, err)
		return err
	}
	s.w.written = append(s.w.written, s.blobName)

	entry := &s.w.m.Data3D[s.index]
	entry.Points = manifest.Block{Blob: s.blobName, Descriptor: desc}
	entry.Header.PointCount = s.count
	s.bounds.apply(&entry.Header)

	s.log.LogSessionClose(ctx, s.count, nil)
	return nil
}

func (s *PointWriter) abort() {
	s.closed = true
	if err := s.block.Abort(); err != nil && !errors.Is(err, colstore.ErrClosed) {
		s.log.WarnContext(context.Background(), "abort failed", "error", err)
	}
}
