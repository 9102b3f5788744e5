package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"
)

// DefaultBlockSize is the cache block size used when none is given.
const DefaultBlockSize = 64 << 10

// maxFetches bounds the concurrent backend reads of one ReadAt.
const maxFetches = 8

// CachingStore wraps a BlobStore with a read-through block cache. Blobs are
// immutable once written, so Put and Delete only need to drop cached blocks.
// It pays off on remote stores, where several point readers of one dataset
// read the same pages.
type CachingStore struct {
	inner     BlobStore
	cache     BlockCache
	blockSize int64
}

// NewCachingStore creates a CachingStore. blockSize defaults to
// DefaultBlockSize if <= 0.
func NewCachingStore(inner BlobStore, cache BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{inner: inner, cache: cache, blockSize: blockSize}
}

// Open implements BlobStore.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{inner: b, cache: s.cache, name: name, blockSize: s.blockSize}, nil
}

// Create implements BlobStore.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingBlob{WritableBlob: w, cache: s.cache, name: name}, nil
}

// invalidatingBlob drops cached blocks once the new blob becomes visible.
type invalidatingBlob struct {
	WritableBlob
	cache BlockCache
	name  string
}

func (w *invalidatingBlob) Close() error {
	err := w.WritableBlob.Close()
	w.cache.Invalidate(w.name)
	return err
}

// Put implements BlobStore.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete implements BlobStore.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List implements BlobStore.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type cachingBlob struct {
	inner     Blob
	cache     BlockCache
	name      string
	blockSize int64
}

func (b *cachingBlob) Close() error { return b.inner.Close() }
func (b *cachingBlob) Size() int64  { return b.inner.Size() }

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off < 0 {
		return 0, errors.New("blobstore: negative offset")
	}
	if off >= size {
		return 0, io.EOF
	}
	want := p
	if rest := size - off; int64(len(want)) > rest {
		want = want[:rest]
	}
	if len(want) == 0 {
		return 0, nil
	}

	first := off / b.blockSize
	last := (off + int64(len(want)) - 1) / b.blockSize
	blocks, err := b.blocks(ctx, first, last)
	if err != nil {
		return 0, err
	}

	n := 0
	for i, data := range blocks {
		start := (first + int64(i)) * b.blockSize
		from := max(off+int64(n)-start, 0)
		if from >= int64(len(data)) {
			return n, io.ErrUnexpectedEOF
		}
		n += copy(want[n:], data[from:])
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// blocks returns blocks [first, last], reading each run of missing blocks
// from the backend in one request.
func (b *cachingBlob) blocks(ctx context.Context, first, last int64) ([][]byte, error) {
	out := make([][]byte, last-first+1)
	type run struct{ start, count int64 }
	var missing []run
	for blk := first; blk <= last; blk++ {
		if data, ok := b.cache.Get(BlockKey{Blob: b.name, Block: blk}); ok {
			out[blk-first] = data
			continue
		}
		if k := len(missing) - 1; k >= 0 && missing[k].start+missing[k].count == blk {
			missing[k].count++
		} else {
			missing = append(missing, run{start: blk, count: 1})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetches)
	for _, r := range missing {
		g.Go(func() error {
			off := r.start * b.blockSize
			length := min(r.count*b.blockSize, b.Size()-off)
			buf := make([]byte, length)
			n, err := b.inner.ReadAt(gctx, buf, off)
			if int64(n) < length {
				if err == nil || errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}
				return err
			}
			for i := int64(0); i < r.count; i++ {
				lo := i * b.blockSize
				hi := min(lo+b.blockSize, length)
				// Copy so a cached block does not pin the whole run.
				data := append([]byte(nil), buf[lo:hi]...)
				b.cache.Set(BlockKey{Blob: b.name, Block: r.start + i}, data)
				out[r.start+i-first] = data
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *cachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, errors.New("blobstore: negative range")
	}
	end := min(off+length, b.Size())
	return NopReadCloser(&sectionReader{ctx: ctx, blob: b, off: off, end: end}), nil
}

type sectionReader struct {
	ctx  context.Context
	blob Blob
	off  int64
	end  int64
}

func (r *sectionReader) Read(p []byte) (int, error) {
	if r.off >= r.end {
		return 0, io.EOF
	}
	if rest := r.end - r.off; int64(len(p)) > rest {
		p = p[:rest]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	if errors.Is(err, io.EOF) && r.off < r.end {
		err = io.ErrUnexpectedEOF
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}
