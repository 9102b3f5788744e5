package colstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/resource"
	"github.com/hupe1980/e57go/schema"
	"golang.org/x/sync/errgroup"
)

// DefaultPageRecords is the page size used when none is configured.
const DefaultPageRecords = 65536

// Descriptor is the persisted index of a column block.
type Descriptor struct {
	Compression Compression `json:"compression"`
	Records     uint64      `json:"records"`
	Pages       []PageInfo  `json:"pages,omitempty"`
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	Compression Compression
	PageRecords int
	Resources   *resource.Controller

	// OnFlush is called after every page write with the page size.
	OnFlush func(bytes int, d time.Duration)
}

// Writer appends records to a column block. It is not safe for concurrent use.
type Writer struct {
	blob    blobstore.WritableBlob
	proto   *schema.Prototype
	opts    WriterOptions
	pending []*Vector
	n       int
	desc    Descriptor
	offset  int64
	closed  bool
}

// NewWriter returns a writer storing records of proto into blob.
func NewWriter(blob blobstore.WritableBlob, proto *schema.Prototype, opts WriterOptions) (*Writer, error) {
	if proto.Len() == 0 {
		return nil, errors.New("colstore: empty prototype")
	}
	if !opts.Compression.Valid() {
		return nil, fmt.Errorf("colstore: unknown compression %d", opts.Compression)
	}
	if opts.PageRecords <= 0 {
		opts.PageRecords = DefaultPageRecords
	}
	if opts.PageRecords > MaxPageRecords {
		return nil, fmt.Errorf("colstore: page size %d exceeds %d records", opts.PageRecords, MaxPageRecords)
	}

	w := &Writer{
		blob:    blob,
		proto:   proto,
		opts:    opts,
		pending: make([]*Vector, proto.Len()),
		desc:    Descriptor{Compression: opts.Compression},
	}
	for i, f := range proto.Fields() {
		w.pending[i] = NewVector(f.Type, min(opts.PageRecords, 4096))
	}
	return w, nil
}

// Append adds the first n values of every column in batch, indexed by
// prototype ordinal. Full pages are flushed as they fill.
func (w *Writer) Append(ctx context.Context, batch []*Vector, n int) error {
	if w.closed {
		return ErrClosed
	}
	if len(batch) != len(w.pending) {
		return fmt.Errorf("colstore: batch has %d columns, prototype %d", len(batch), len(w.pending))
	}
	for i, v := range batch {
		if v.Len() < n {
			return fmt.Errorf("colstore: column %d has %d of %d values", i, v.Len(), n)
		}
	}

	for off := 0; off < n; {
		take := min(w.opts.PageRecords-w.n, n-off)
		for i, v := range batch {
			w.pending[i].AppendRange(v, off, off+take)
		}
		w.n += take
		off += take
		if w.n == w.opts.PageRecords {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Records returns the number of records appended so far.
func (w *Writer) Records() uint64 {
	return w.desc.Records + uint64(w.n)
}

func (w *Writer) flush(ctx context.Context) error {
	if w.n == 0 {
		return nil
	}
	start := time.Now()

	chunks := make([]chunk, len(w.pending))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Resources.DecodeWorkers())
	for i, v := range w.pending {
		g.Go(func() error {
			ch, err := buildChunk(i, v, w.opts.Compression)
			if err != nil {
				return fmt.Errorf("field %s: %w", w.proto.Field(i).ID, err)
			}
			chunks[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	page := framePage(chunks, w.n, w.opts.Compression)
	out := resource.NewRateLimitedWriter(ctx, w.blob, w.opts.Resources)
	if _, err := out.Write(page); err != nil {
		return err
	}

	w.desc.Pages = append(w.desc.Pages, PageInfo{
		Offset:  w.offset,
		Length:  int64(len(page)),
		Records: uint32(w.n),
	})
	w.desc.Records += uint64(w.n)
	w.offset += int64(len(page))
	w.n = 0
	for _, v := range w.pending {
		v.Reset()
	}

	if w.opts.OnFlush != nil {
		w.opts.OnFlush(len(page), time.Since(start))
	}
	return nil
}

// Close flushes the last page, closes the blob and returns the descriptor.
func (w *Writer) Close(ctx context.Context) (Descriptor, error) {
	if w.closed {
		return Descriptor{}, ErrClosed
	}
	if err := w.flush(ctx); err != nil {
		return Descriptor{}, errors.Join(err, w.Abort())
	}
	w.closed = true
	if err := w.blob.Close(); err != nil {
		return Descriptor{}, err
	}
	return w.desc, nil
}

// Abort discards the block.
func (w *Writer) Abort() error {
	w.closed = true
	return w.blob.Abort()
}
