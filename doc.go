// Package e57go streams 3D scan data and camera images between an E57-style
// container and caller-owned buffers, in bounded chunks.
//
// A container holds point datasets (Data3D) and images (Image2D). Each
// dataset stores its points column-wise in pages; each image stores up to four
// representations as opaque blobs. Containers live in a blobstore.BlobStore:
// in memory, on the local file system, on S3 or on MinIO.
//
// # Reading
//
// Query sizes first, allocate buffers, bind them to a FieldSet and loop over
// Transfer until it returns 0:
//
//	r, _ := e57go.Open(ctx, blobstore.NewLocalStore("./scan"))
//	sizes, _ := r.Data3DSizes(0)
//
//	const chunk = 4096
//	x, y, z := make([]float64, chunk), make([]float64, chunk), make([]float64, chunk)
//	fields := e57go.NewFieldSet().
//	    Bind(schema.CartesianX, e57go.Floats(x)).
//	    Bind(schema.CartesianY, e57go.Floats(y)).
//	    Bind(schema.CartesianZ, e57go.Floats(z))
//
//	pr, _ := r.OpenPointReader(ctx, 0, fields, chunk)
//	defer pr.Close()
//	for {
//	    n, err := pr.Transfer(ctx)
//	    if err != nil || n == 0 {
//	        break
//	    }
//	    // use x[:n], y[:n], z[:n]
//	}
//
// Transfer delivers records in stored order, independent of the chunk size
// and of page boundaries. End of stream is a count of 0, not an error.
//
// # Writing
//
//	w, _ := e57go.Create(ctx, store)
//	idx, _ := w.NewData3D(e57go.Data3D{
//	    Name: "scan 1",
//	    PointFields: []schema.Field{
//	        {ID: schema.CartesianX, Type: schema.Float64()},
//	        {ID: schema.CartesianY, Type: schema.Float64()},
//	        {ID: schema.CartesianZ, Type: schema.Float64()},
//	    },
//	})
//	pw, _ := w.OpenPointWriter(ctx, idx, fields, chunk)
//	pw.Transfer(ctx, n) // as often as needed
//	pw.Close(ctx)
//	w.Close(ctx) // commits the container
//
// Nothing of a Writer is visible to readers before Close commits the manifest.
//
// # Errors
//
// Every fault matches one of ErrInvalidArgument, ErrIndexOutOfRange,
// ErrSchemaMismatch, ErrInvalidGroupOrdering, ErrSessionClosed,
// ErrNonSequentialWrite or ErrStorageFault with errors.Is. Storage faults
// are never retried, and a session that hit one stays failed.
//
// # Concurrency
//
// A dataset has exactly one point writer. Any number of point readers may run
// over a committed container, each with its own cursor. Sessions themselves
// are not safe for concurrent use.
package e57go
