package e57go

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/internal/manifest"
	"github.com/hupe1980/e57go/schema"
)

// Reader gives read access to a committed container. Its queries are pure
// reads of the manifest loaded by Open. Sessions opened from one Reader are
// independent and may be used from different goroutines.
type Reader struct {
	store  blobstore.BlobStore
	m      *manifest.Manifest
	opts   options
	closed atomic.Bool
}

// Open loads the committed manifest of store.
//
// A store without a committed manifest or with a damaged one fails with
// ErrStorageFault.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Reader, error) {
	if store == nil {
		return nil, invalidArgument("nil blob store")
	}
	opts := applyOptions(optFns)

	m, err := manifest.NewStore(store).Load(ctx)
	if err != nil {
		err = translateError(err)
		opts.logger.ErrorContext(ctx, "open failed", "error", err)
		return nil, err
	}

	opts.logger.InfoContext(ctx, "container opened",
		"guid", m.Root.GUID,
		"data3d", len(m.Data3D),
		"images2d", len(m.Images2D),
	)
	return &Reader{store: store, m: m, opts: opts}, nil
}

// Close releases the reader. Open sessions stay usable until they are closed.
func (r *Reader) Close() error {
	r.closed.Store(true)
	return nil
}

func (r *Reader) checkOpen() error {
	if r.closed.Load() {
		return ErrSessionClosed
	}
	return nil
}

// Root returns the root header.
func (r *Reader) Root() Root {
	return r.m.Root
}

// Data3DCount returns the number of point datasets.
func (r *Reader) Data3DCount() int64 {
	return int64(len(r.m.Data3D))
}

// Image2DCount returns the number of images.
func (r *Reader) Image2DCount() int64 {
	return int64(len(r.m.Images2D))
}

func (r *Reader) data3D(index int64) (*manifest.Data3DEntry, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if index < 0 || index >= int64(len(r.m.Data3D)) {
		return nil, &IndexError{Kind: "data3D", Index: index, Count: int64(len(r.m.Data3D))}
	}
	return &r.m.Data3D[index], nil
}

func (r *Reader) image2D(index int64) (*manifest.Image2DEntry, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if index < 0 || index >= int64(len(r.m.Images2D)) {
		return nil, &IndexError{Kind: "image2D", Index: index, Count: int64(len(r.m.Images2D))}
	}
	return &r.m.Images2D[index], nil
}

// Data3D returns the header of dataset index.
func (r *Reader) Data3D(index int64) (Data3D, error) {
	d, err := r.data3D(index)
	if err != nil {
		return Data3D{}, err
	}
	return d.Header, nil
}

// Image2D returns the header of image index.
func (r *Reader) Image2D(index int64) (Image2D, error) {
	img, err := r.image2D(index)
	if err != nil {
		return Image2D{}, err
	}
	return img.Header, nil
}

// Prototype returns the stored point schema of dataset index, including
// extension fields.
func (r *Reader) Prototype(index int64) (*schema.Prototype, error) {
	d, err := r.data3D(index)
	if err != nil {
		return nil, err
	}
	return d.Prototype, nil
}

// Attributes returns read access to the namespaced extension attributes.
func (r *Reader) Attributes() *AttributeReader {
	return &AttributeReader{m: r.m}
}

// openBlob opens a data blob; a missing blob is a storage fault because the
// manifest references it.
func (r *Reader) openBlob(ctx context.Context, name string) (blobstore.Blob, error) {
	b, err := r.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: blob %s referenced by the manifest is missing: %w", ErrStorageFault, name, err)
		}
		return nil, translateError(err)
	}
	return b, nil
}
