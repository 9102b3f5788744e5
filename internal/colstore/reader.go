package colstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/resource"
	"github.com/hupe1980/e57go/schema"
	"golang.org/x/sync/errgroup"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Resources *resource.Controller

	// OnDecode is called after every page decode with the decoded size.
	OnDecode func(bytes int64, d time.Duration)
}

// Reader gives random access to the pages of a column block.
// It is safe for concurrent use if the underlying blob is.
type Reader struct {
	blob   blobstore.Blob
	proto  *schema.Prototype
	desc   Descriptor
	opts   ReaderOptions
	starts []uint64
}

// NewReader validates desc against blob and returns a reader.
func NewReader(blob blobstore.Blob, proto *schema.Prototype, desc Descriptor, opts ReaderOptions) (*Reader, error) {
	r := &Reader{
		blob:   blob,
		proto:  proto,
		desc:   desc,
		opts:   opts,
		starts: make([]uint64, len(desc.Pages)),
	}

	var records uint64
	var offset int64
	for i, p := range desc.Pages {
		if p.Offset != offset || p.Length < pageHeaderSize || p.Records == 0 {
			return nil, fmt.Errorf("%w: page %d at [%d,+%d) with %d records", ErrCorrupt, i, p.Offset, p.Length, p.Records)
		}
		r.starts[i] = records
		records += uint64(p.Records)
		offset += p.Length
	}
	if records != desc.Records {
		return nil, fmt.Errorf("%w: pages hold %d records, descriptor %d", ErrCorrupt, records, desc.Records)
	}
	if offset > blob.Size() {
		return nil, fmt.Errorf("%w: pages end at %d, blob has %d bytes", ErrCorrupt, offset, blob.Size())
	}
	return r, nil
}

// Records returns the total record count.
func (r *Reader) Records() uint64 { return r.desc.Records }

// Pages returns the number of pages.
func (r *Reader) Pages() int { return len(r.desc.Pages) }

// PageStart returns the index of the first record of page i.
func (r *Reader) PageStart(i int) uint64 { return r.starts[i] }

// Locate returns the page holding record rec, or -1 past the end.
func (r *Reader) Locate(rec uint64) int {
	if rec >= r.desc.Records {
		return -1
	}
	return sort.Search(len(r.starts), func(i int) bool { return r.starts[i] > rec }) - 1
}

// Page is a decoded page. Release returns its memory reservation.
type Page struct {
	Records  int
	columns  []*Vector
	reserved int64
	rc       *resource.Controller
}

// Column returns the decoded vector for ordinal, or nil if it was not requested.
func (p *Page) Column(ordinal int) *Vector {
	return p.columns[ordinal]
}

// Release frees the memory reservation of the page. It is idempotent.
func (p *Page) Release() {
	if p == nil || p.reserved == 0 {
		return
	}
	p.rc.ReleaseMemory(p.reserved)
	p.reserved = 0
	p.columns = nil
}

// ReadPage reads, verifies and decodes page i. Only the given ordinals are
// decompressed; the checksum always covers the whole page.
func (r *Reader) ReadPage(ctx context.Context, i int, ordinals []int) (*Page, error) {
	info := r.desc.Pages[i]
	start := time.Now()
	rc := r.opts.Resources

	var decoded int64
	for _, o := range ordinals {
		decoded += int64(info.Records) * int64(valueBytes(r.proto.Field(o).Type))
	}
	// The raw page and its decoded columns are live together, so both are
	// reserved in one request. The raw share is returned once decoding ends.
	if err := rc.AcquireMemory(ctx, info.Length+decoded); err != nil {
		return nil, err
	}
	defer rc.ReleaseMemory(info.Length)

	page := &Page{
		Records:  int(info.Records),
		columns:  make([]*Vector, r.proto.Len()),
		reserved: decoded,
		rc:       rc,
	}
	fail := func(err error) (*Page, error) {
		page.Release()
		return nil, err
	}

	raw, err := r.readRaw(ctx, info)
	if err != nil {
		return fail(err)
	}

	h, dir, offsets, err := parsePage(raw)
	if err != nil {
		return fail(fmt.Errorf("page %d: %w", i, err))
	}
	if h.records != int(info.Records) || h.columns != r.proto.Len() {
		return fail(fmt.Errorf("%w: page %d has %d records in %d columns, want %d in %d",
			ErrCorrupt, i, h.records, h.columns, info.Records, r.proto.Len()))
	}

	byOrdinal := make([]int, r.proto.Len())
	for d, e := range dir {
		if int(e.ordinal) != d {
			return fail(fmt.Errorf("%w: page %d directory entry %d has ordinal %d", ErrCorrupt, i, d, e.ordinal))
		}
		byOrdinal[e.ordinal] = d
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(rc.DecodeWorkers())
	for _, o := range ordinals {
		d := byOrdinal[o]
		e := dir[d]
		stored := raw[offsets[d] : offsets[d]+int(e.storedLen)]
		g.Go(func() error {
			chunk, err := decompressChunk(stored, int(e.rawLen), h.compression)
			if err != nil {
				return fmt.Errorf("%w: page %d column %d: %w", ErrCorrupt, i, o, err)
			}
			v, err := decodeVector(e.encoding, chunk, r.proto.Field(o).Type, h.records)
			if err != nil {
				return fmt.Errorf("page %d column %d: %w", i, o, err)
			}
			page.columns[o] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	if r.opts.OnDecode != nil {
		r.opts.OnDecode(decoded, time.Since(start))
	}
	return page, nil
}

// readRaw returns the page bytes, borrowing from a mapped blob when possible.
func (r *Reader) readRaw(ctx context.Context, info PageInfo) ([]byte, error) {
	if m, ok := r.blob.(blobstore.Mappable); ok {
		if data, err := m.Bytes(); err == nil && int64(len(data)) >= info.Offset+info.Length {
			return data[info.Offset : info.Offset+info.Length], nil
		}
	}
	buf := make([]byte, info.Length)
	n, err := r.blob.ReadAt(ctx, buf, info.Offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil {
		err = fmt.Errorf("%w: short read %d of %d", ErrCorrupt, n, len(buf))
	}
	return nil, err
}
