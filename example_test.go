package e57go_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hupe1980/e57go"
	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/schema"
)

func writeExample(ctx context.Context, store blobstore.BlobStore, n int) {
	w, err := e57go.Create(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	idx, err := w.NewData3D(e57go.Data3D{
		Name: "scan 1",
		PointFields: []schema.Field{
			{ID: schema.CartesianX, Type: schema.Float64()},
			{ID: schema.CartesianY, Type: schema.Float64()},
			{ID: schema.CartesianZ, Type: schema.Float64()},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	x, y, z := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := range x {
		x[i], y[i], z[i] = float64(i), float64(2*i), 1
	}
	fields := e57go.NewFieldSet().
		Bind(schema.CartesianX, e57go.Floats(x)).
		Bind(schema.CartesianY, e57go.Floats(y)).
		Bind(schema.CartesianZ, e57go.Floats(z))

	pw, err := w.OpenPointWriter(ctx, idx, fields, n)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := pw.Transfer(ctx, n); err != nil {
		log.Fatal(err)
	}
	if err := w.Close(ctx); err != nil {
		log.Fatal(err)
	}
}

// Example_write demonstrates committing a container with one point dataset.
func Example_write() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeExample(ctx, store, 10)

	r, err := e57go.Open(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	h, _ := r.Data3D(0)
	fmt.Printf("%s: %d points\n", h.Name, h.PointCount)
	fmt.Printf("x in [%g, %g]\n", h.CartesianBounds.XMinimum, h.CartesianBounds.XMaximum)
	// Output:
	// scan 1: 10 points
	// x in [0, 9]
}

// Example_chunkedRead demonstrates reading a dataset in fixed-size chunks.
func Example_chunkedRead() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeExample(ctx, store, 10)

	r, err := e57go.Open(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	y := make([]float64, 4)
	pr, err := r.OpenPointReader(ctx, 0, e57go.NewFieldSet().Bind(schema.CartesianY, e57go.Floats(y)), len(y))
	if err != nil {
		log.Fatal(err)
	}
	defer pr.Close()

	for {
		n, err := pr.Transfer(ctx)
		if err != nil {
			log.Fatal(err)
		}
		if n == 0 {
			break
		}
		fmt.Println(y[:n])
	}
	// Output:
	// [0 2 4 6]
	// [8 10 12 14]
	// [16 18]
}

// Example_schemaMismatch demonstrates the error for a field the dataset lacks.
func Example_schemaMismatch() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeExample(ctx, store, 3)

	r, err := e57go.Open(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	fields := e57go.NewFieldSet().Bind(schema.SphericalRange, e57go.Floats(make([]float64, 3)))
	_, err = r.OpenPointReader(ctx, 0, fields, 3)
	fmt.Println(errors.Is(err, e57go.ErrSchemaMismatch))
	// Output: true
}

// Example_image demonstrates storing and reading back an image blob.
func Example_image() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w, err := e57go.Create(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	png := []byte("\x89PNG fake image data")
	idx, err := w.NewImage2D(e57go.Image2D{
		Name: "overview",
		Visual: &e57go.VisualReferenceRepresentation{Representation: e57go.Representation{
			Format: e57go.ImagePNG, Width: 2, Height: 2, ImageSize: int64(len(png)),
		}},
	})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := w.WriteImage2DData(ctx, idx, e57go.ProjectionVisual, e57go.ImagePNG, png, 0); err != nil {
		log.Fatal(err)
	}
	if err := w.Close(ctx); err != nil {
		log.Fatal(err)
	}

	r, err := e57go.Open(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	sizes, _ := r.Image2DSizes(0, e57go.ProjectionVisual)
	buf := make([]byte, 3)
	n, _ := r.ReadImage2DData(ctx, 0, e57go.ProjectionVisual, e57go.ImagePNG, buf, 1)
	fmt.Println(sizes.Size, string(buf[:n]))
	// Output: 20 PNG
}
