package e57go

import (
	"context"
	"time"

	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/internal/colstore"
)

// PointReader streams the records of one dataset into the buffers of a
// FieldSet, at most capacity records per Transfer.
//
// A PointReader is not safe for concurrent use. Open one session per
// goroutine instead.
type PointReader struct {
	index    int64
	blob     blobstore.Blob
	block    *colstore.Reader
	bindings []binding
	ordinals []int
	capacity int
	total    int64
	pos      int64

	// page is the decoded page holding records [pageStart, pageStart+page.Records).
	page      *colstore.Page
	pageStart int64

	err     error
	closed  bool
	metrics MetricsCollector
	log     *Logger
}

// OpenPointReader opens a read session over dataset index. Every bound buffer
// must hold exactly capacity records. Fields the dataset does not store, or
// buffers of the wrong kind, fail with ErrSchemaMismatch before any record is
// read.
func (r *Reader) OpenPointReader(ctx context.Context, index int64, fields *FieldSet, capacity int) (*PointReader, error) {
	log := r.opts.logger.WithDataset(index).WithSession("read")
	s, err := r.openPointReader(ctx, index, fields, capacity, log)
	if err != nil {
		log.LogSessionOpen(ctx, fields.Len(), capacity, 0, err)
		return nil, err
	}
	log.LogSessionOpen(ctx, fields.Len(), capacity, s.total, nil)
	return s, nil
}

func (r *Reader) openPointReader(ctx context.Context, index int64, fields *FieldSet, capacity int, log *Logger) (*PointReader, error) {
	d, err := r.data3D(index)
	if err != nil {
		return nil, err
	}
	bindings, err := fields.bind(d.Prototype, capacity, false)
	if err != nil {
		return nil, err
	}

	s := &PointReader{
		index:    index,
		bindings: bindings,
		ordinals: make([]int, len(bindings)),
		capacity: capacity,
		total:    d.Header.PointCount,
		metrics:  r.opts.metricsCollector,
		log:      log,
	}
	for i, b := range bindings {
		s.ordinals[i] = b.ordinal
	}
	if s.total == 0 {
		return s, nil
	}

	blob, err := r.openBlob(ctx, d.Points.Blob)
	if err != nil {
		return nil, err
	}
	block, err := colstore.NewReader(blob, d.Prototype, d.Points.Descriptor, colstore.ReaderOptions{
		Resources: r.opts.resources,
		OnDecode:  r.opts.metricsCollector.RecordPageDecode,
	})
	if err != nil {
		_ = blob.Close()
		return nil, translateError(err)
	}
	s.blob, s.block = blob, block
	return s, nil
}

// Transfer moves the next min(remaining, capacity) records into the bound
// buffers, starting at buffer index 0, and returns the number moved. It
// returns 0 without error once every record has been delivered.
//
// A storage fault poisons the session: the failing call and every later one
// return the same error.
func (s *PointReader) Transfer(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrSessionClosed
	}
	if s.err != nil {
		return 0, s.err
	}

	n := int(min(s.total-s.pos, int64(s.capacity)))
	if n == 0 {
		return 0, nil
	}

	start := time.Now()
	err := s.transfer(ctx, n)
	s.metrics.RecordPointRead(n, time.Since(start), err)
	s.log.LogTransfer(ctx, n, s.pos, err)
	if err != nil {
		s.err = err
		s.releasePage()
		return 0, err
	}
	return n, nil
}

func (s *PointReader) transfer(ctx context.Context, n int) error {
	for done := 0; done < n; {
		pos := s.pos + int64(done)
		if s.page == nil || pos < s.pageStart || pos >= s.pageStart+int64(s.page.Records) {
			if err := s.loadPage(ctx, pos); err != nil {
				return err
			}
		}

		off := int(pos - s.pageStart)
		take := min(n-done, s.page.Records-off)
		for _, b := range s.bindings {
			b.buf.load(s.page.Column(b.ordinal), done, off, off+take)
		}
		done += take
	}
	s.pos += int64(n)
	return nil
}

func (s *PointReader) loadPage(ctx context.Context, pos int64) error {
	s.releasePage()
	i := s.block.Locate(uint64(pos))
	if i < 0 {
		return translateError(colstore.ErrCorrupt)
	}
	page, err := s.block.ReadPage(ctx, i, s.ordinals)
	if err != nil {
		return translateError(err)
	}
	s.page, s.pageStart = page, int64(s.block.PageStart(i))
	return nil
}

func (s *PointReader) releasePage() {
	if s.page != nil {
		s.page.Release()
		s.page = nil
	}
}

// Position returns the index of the next record Transfer delivers.
func (s *PointReader) Position() int64 { return s.pos }

// Total returns the number of records of the dataset.
func (s *PointReader) Total() int64 { return s.total }

// Capacity returns the maximum number of records per Transfer.
func (s *PointReader) Capacity() int { return s.capacity }

// Seek repositions the session so that the next Transfer starts at record.
// record may equal Total, which positions the session at end-of-stream.
func (s *PointReader) Seek(record int64) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.err != nil {
		return s.err
	}
	if record < 0 || record > s.total {
		return &IndexError{Kind: "record", Index: record, Count: s.total}
	}
	s.pos = record
	return nil
}

// Close releases the session. It is safe to call multiple times and does not
// affect the dataset.
func (s *PointReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.releasePage()

	var err error
	if s.blob != nil {
		err = translateError(s.blob.Close())
		s.blob = nil
	}
	s.log.LogSessionClose(context.Background(), s.pos, err)
	return err
}
