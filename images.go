package e57go

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/internal/manifest"
	"github.com/hupe1980/e57go/resource"
)

type slotKey struct {
	projection Projection
	mask       bool
}

// slot is the write state of one image or mask blob.
type slot struct {
	name    string
	size    int64
	written int64
	blob    blobstore.WritableBlob
	done    bool
	err     error
}

type image struct {
	slots map[slotKey]*slot
}

func (img *image) abort() {
	for _, s := range img.slots {
		if s.blob != nil && !s.done {
			_ = s.blob.Abort()
			s.blob = nil
		}
	}
}

// NewImage2D registers an image and returns its index. Every present
// representation declares its format, pixel dimensions and blob sizes; the
// blobs are then written with WriteImage2DData. A GUID is assigned when
// header.GUID is empty.
func (w *Writer) NewImage2D(header Image2D) (int64, error) {
	if err := w.checkOpen(); err != nil {
		return 0, err
	}
	if header.GUID == "" {
		header.GUID = uuid.NewString()
	}
	for _, e := range w.m.Images2D {
		if e.Header.GUID == header.GUID {
			return 0, invalidArgument("duplicate image2D guid %s", header.GUID)
		}
	}

	img := &image{slots: make(map[slotKey]*slot)}
	for _, p := range manifest.Projections {
		rep := header.Representation(p)
		if rep == nil {
			continue
		}
		if rep.Format != ImageJPEG && rep.Format != ImagePNG {
			return 0, invalidArgument("%s has format %s, want jpeg or png", p, rep.Format)
		}
		if rep.Width <= 0 || rep.Height <= 0 || rep.ImageSize <= 0 || rep.MaskSize < 0 {
			return 0, invalidArgument("%s declares %dx%d pixels, %d image bytes and %d mask bytes",
				p, rep.Width, rep.Height, rep.ImageSize, rep.MaskSize)
		}
		img.slots[slotKey{projection: p}] = &slot{
			name: manifest.ImageBlobName(header.GUID, p, rep.Format),
			size: rep.ImageSize,
		}
		if rep.MaskSize > 0 {
			img.slots[slotKey{projection: p, mask: true}] = &slot{
				name: manifest.ImageBlobName(header.GUID, p, ImageMaskPNG),
				size: rep.MaskSize,
			}
		}
	}
	if len(img.slots) == 0 {
		return 0, invalidArgument("image2D %s has no representation", header.GUID)
	}

	w.m.Images2D = append(w.m.Images2D, manifest.Image2DEntry{Header: header})
	w.images = append(w.images, img)
	return int64(len(w.images) - 1), nil
}

// Image2D returns the header of image index.
func (w *Writer) Image2D(index int64) (Image2D, error) {
	if err := w.checkOpen(); err != nil {
		return Image2D{}, err
	}
	if index < 0 || index >= int64(len(w.images)) {
		return Image2D{}, &IndexError{Kind: "image2D", Index: index, Count: int64(len(w.images))}
	}
	return w.m.Images2D[index].Header, nil
}

// selectSlot resolves imageType against representation rep. ImageMaskPNG
// selects the mask, any other type must equal the representation format.
func selectSlot(h *Image2D, p Projection, imageType ImageFormat) (slotKey, int64, error) {
	rep, err := representation(h, p)
	if err != nil {
		return slotKey{}, 0, err
	}
	if imageType == ImageMaskPNG {
		if rep.MaskSize == 0 {
			return slotKey{}, 0, fmt.Errorf("%w: %s of image %s has no mask", ErrSchemaMismatch, p, h.GUID)
		}
		return slotKey{projection: p, mask: true}, rep.MaskSize, nil
	}
	if imageType != rep.Format {
		return slotKey{}, 0, fmt.Errorf("%w: %s of image %s is %s, not %s", ErrSchemaMismatch, p, h.GUID, rep.Format, imageType)
	}
	return slotKey{projection: p}, rep.ImageSize, nil
}

// WriteImage2DData writes buf at byte offset start of the image or mask blob
// selected by projection and imageType. Writes are sequential: start must
// equal the number of bytes written so far, otherwise the call fails with
// ErrNonSequentialWrite. The blob is finished once its declared size has
// been written; bytes past the declared size fail with ErrInvalidArgument.
func (w *Writer) WriteImage2DData(ctx context.Context, index int64, projection Projection, imageType ImageFormat, buf []byte, start int64) (int, error) {
	began := time.Now()
	n, err := w.writeImage(ctx, index, projection, imageType, buf, start)
	w.opts.metricsCollector.RecordImageWrite(n, time.Since(began), err)
	w.log.WithImage(index).LogImage(ctx, projection, imageType, start, n, err)
	return n, err
}

func (w *Writer) writeImage(ctx context.Context, index int64, projection Projection, imageType ImageFormat, buf []byte, start int64) (int, error) {
	if _, err := w.Image2D(index); err != nil {
		return 0, err
	}
	key, _, err := selectSlot(&w.m.Images2D[index].Header, projection, imageType)
	if err != nil {
		return 0, err
	}
	s := w.images[index].slots[key]

	if s.err != nil {
		return 0, s.err
	}
	if start < 0 {
		return 0, invalidArgument("negative start %d", start)
	}
	if start != s.written {
		return 0, fmt.Errorf("%w: start %d, write cursor at %d", ErrNonSequentialWrite, start, s.written)
	}
	if int64(len(buf)) > s.size-s.written {
		return 0, invalidArgument("%d bytes at %d exceed the declared size %d", len(buf), start, s.size)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	if s.blob == nil {
		blob, err := w.store.Create(ctx, s.name)
		if err != nil {
			return 0, translateError(err)
		}
		s.blob = blob
	}
	n, err := resource.NewRateLimitedWriter(ctx, s.blob, w.opts.resources).Write(buf)
	s.written += int64(n)
	if err == nil && n < len(buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.err = translateError(err)
		_ = s.blob.Abort()
		s.blob = nil
		return n, s.err
	}

	if s.written == s.size {
		if err := s.blob.Close(); err != nil {
			s.err = translateError(err)
			s.blob = nil
			return n, s.err
		}
		s.blob = nil
		s.done = true
		w.written = append(w.written, s.name)
	}
	return n, nil
}

// checkImages reports the first image blob that is not complete.
func (w *Writer) checkImages() error {
	for i, img := range w.images {
		for _, p := range manifest.Projections {
			for _, mask := range []bool{false, true} {
				s, ok := img.slots[slotKey{projection: p, mask: mask}]
				if !ok || s.done {
					continue
				}
				if s.err != nil {
					return fmt.Errorf("image2D %d %s: %w", i, p, s.err)
				}
				return invalidArgument("image2D %d %s blob %s has %d of %d bytes", i, p, s.name, s.written, s.size)
			}
		}
	}
	return nil
}

// ReadImage2DData copies bytes of the image or mask blob selected by
// projection and imageType, starting at byte offset start, into buf. It
// returns min(len(buf), size-start) bytes; a start at or past the end of the
// blob yields 0 without error.
func (r *Reader) ReadImage2DData(ctx context.Context, index int64, projection Projection, imageType ImageFormat, buf []byte, start int64) (int, error) {
	began := time.Now()
	n, err := r.readImage(ctx, index, projection, imageType, buf, start)
	r.opts.metricsCollector.RecordImageRead(n, time.Since(began), err)
	r.opts.logger.WithImage(index).LogImage(ctx, projection, imageType, start, n, err)
	return n, err
}

func (r *Reader) readImage(ctx context.Context, index int64, projection Projection, imageType ImageFormat, buf []byte, start int64) (int, error) {
	img, err := r.image2D(index)
	if err != nil {
		return 0, err
	}
	key, size, err := selectSlot(&img.Header, projection, imageType)
	if err != nil {
		return 0, err
	}
	if start < 0 {
		return 0, invalidArgument("negative start %d", start)
	}
	if start >= size {
		return 0, nil
	}
	n := int(min(int64(len(buf)), size-start))
	if n == 0 {
		return 0, nil
	}

	format := img.Header.Representation(projection).Format
	if key.mask {
		format = ImageMaskPNG
	}
	blob, err := r.openBlob(ctx, manifest.ImageBlobName(img.Header.GUID, projection, format))
	if err != nil {
		return 0, err
	}
	defer blob.Close()

	if blob.Size() != size {
		return 0, fmt.Errorf("%w: image blob has %d bytes, header declares %d", ErrStorageFault, blob.Size(), size)
	}
	got, err := blob.ReadAt(ctx, buf[:n], start)
	if got == n {
		return n, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return 0, translateError(err)
}
