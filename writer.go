package e57go

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/internal/colstore"
	"github.com/hupe1980/e57go/internal/manifest"
	"github.com/hupe1980/e57go/schema"
)

// Writer creates a container. Datasets and images are registered with
// NewData3D and NewImage2D, filled through sessions and committed together
// by Close. Nothing is visible to readers before Close succeeds.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	store     blobstore.BlobStore
	manifests *manifest.Store
	m         *manifest.Manifest
	opts      options
	data      []*dataset
	images    []*image
	prefixes  map[string]string
	// written holds the blobs finished by this writer, removed again by Abort.
	written []string
	closed  bool
	log     *Logger
}

type dataset struct {
	proto   *schema.Prototype
	session *PointWriter
	groups  groupTable
	err     error
}

// Create starts a new container in store. An existing container is replaced
// when the new one is committed.
func Create(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Writer, error) {
	if store == nil {
		return nil, invalidArgument("nil blob store")
	}
	opts := applyOptions(optFns)
	if !opts.compression.Valid() {
		return nil, invalidArgument("unknown compression %d", opts.compression)
	}
	if opts.pageRecords <= 0 {
		opts.pageRecords = colstore.DefaultPageRecords
	}
	if opts.pageRecords > colstore.MaxPageRecords {
		return nil, invalidArgument("page size %d exceeds %d records", opts.pageRecords, colstore.MaxPageRecords)
	}

	root := Root{
		FormatName:         FormatName,
		GUID:               uuid.NewString(),
		VersionMajor:       manifest.VersionMajor,
		VersionMinor:       manifest.VersionMinor,
		LibraryVersion:     opts.libraryVersion,
		CoordinateMetadata: opts.coordinateMetadata,
		CreationDateTime:   NewDateTime(time.Now()),
	}

	w := &Writer{
		store:     store,
		manifests: manifest.NewStore(store),
		m:         manifest.New(root),
		opts:      opts,
		prefixes:  make(map[string]string),
		log:       opts.logger,
	}
	w.log.InfoContext(ctx, "container created", "guid", root.GUID, "compression", opts.compression.String())
	return w, nil
}

func (w *Writer) checkOpen() error {
	if w.closed {
		return ErrSessionClosed
	}
	return nil
}

// Root returns the root header of the container being written.
func (w *Writer) Root() Root {
	return w.m.Root
}

// Data3DCount returns the number of registered datasets.
func (w *Writer) Data3DCount() int64 {
	return int64(len(w.data))
}

// Image2DCount returns the number of registered images.
func (w *Writer) Image2DCount() int64 {
	return int64(len(w.images))
}

// Attributes returns write access to the namespaced extension attributes.
func (w *Writer) Attributes() *AttributeWriter {
	return &AttributeWriter{w: w}
}

// NewData3D registers a dataset and returns its index. header.PointFields
// declares the stored point fields; a GUID is assigned when header.GUID is
// empty. The point count is fixed when the dataset's point writer closes.
func (w *Writer) NewData3D(header Data3D) (int64, error) {
	if err := w.checkOpen(); err != nil {
		return 0, err
	}
	if header.GUID == "" {
		header.GUID = uuid.NewString()
	}
	for _, d := range w.m.Data3D {
		if d.Header.GUID == header.GUID {
			return 0, invalidArgument("duplicate data3D guid %s", header.GUID)
		}
	}
	if err := header.Grouping.Validate(); err != nil {
		return 0, invalidArgument("%v", err)
	}

	proto, err := schema.NewPrototype(header.PointFields...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	for _, f := range proto.Fields() {
		if p := f.ID.Prefix(); !schema.IsStandard(f.ID) {
			if _, ok := w.prefixes[p]; !ok {
				return 0, invalidField(f.ID, "extension prefix %q is not registered", p)
			}
		}
	}

	header.PointFields = proto.Fields()
	header.PointCount = 0
	w.m.Data3D = append(w.m.Data3D, manifest.Data3DEntry{
		Header:    header,
		Prototype: proto,
	})
	w.data = append(w.data, &dataset{proto: proto})
	return int64(len(w.data) - 1), nil
}

func (w *Writer) dataset(index int64) (*dataset, *manifest.Data3DEntry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= int64(len(w.data)) {
		return nil, nil, &IndexError{Kind: "data3D", Index: index, Count: int64(len(w.data))}
	}
	return w.data[index], &w.m.Data3D[index], nil
}

// Data3D returns the header of dataset index as currently known.
func (w *Writer) Data3D(index int64) (Data3D, error) {
	_, e, err := w.dataset(index)
	if err != nil {
		return Data3D{}, err
	}
	return e.Header, nil
}

// Close finishes open point writers, stores the group tables and commits the
// manifest. It fails with ErrInvalidArgument, leaving the writer open, while
// an image blob has not received all of its declared bytes. Close is
// idempotent once it has run.
func (w *Writer) Close(ctx context.Context) error {
	if w.closed {
		return nil
	}
	if err := w.checkImages(); err != nil {
		return err
	}

	name, err := w.commit(ctx)
	w.closed = true
	if err != nil {
		w.abortBlobs()
		if derr := w.deleteWritten(ctx); derr != nil {
			err = errors.Join(err, derr)
		}
	}
	w.log.LogCommit(ctx, name, len(w.data), len(w.images), err)
	return err
}

func (w *Writer) commit(ctx context.Context) (string, error) {
	for i, ds := range w.data {
		if ds.session != nil && !ds.session.closed {
			if err := ds.session.Close(ctx); err != nil {
				return "", err
			}
		}
		if ds.err != nil {
			return "", fmt.Errorf("data3D %d: %w", i, ds.err)
		}
		if err := w.writeGroups(ctx, int64(i)); err != nil {
			return "", fmt.Errorf("data3D %d groups: %w", i, err)
		}
	}

	name, err := w.manifests.Save(ctx, w.m, w.opts.codec)
	if err != nil {
		return "", translateError(err)
	}
	return name, nil
}

// Abort discards the container: open sessions are abandoned and every blob
// written so far is deleted. An earlier committed container stays intact.
func (w *Writer) Abort(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.abortBlobs()
	err := w.deleteWritten(ctx)
	w.log.InfoContext(ctx, "container aborted", "guid", w.m.Root.GUID)
	return err
}

// deleteWritten removes every blob this writer finished.
func (w *Writer) deleteWritten(ctx context.Context) error {
	var errs []error
	for _, name := range w.written {
		if err := w.store.Delete(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	w.written = nil
	return translateError(errors.Join(errs...))
}

// abortBlobs abandons every blob still being written.
func (w *Writer) abortBlobs() {
	for _, ds := range w.data {
		if s := ds.session; s != nil && !s.closed {
			s.abort()
		}
	}
	for _, img := range w.images {
		img.abort()
	}
}
