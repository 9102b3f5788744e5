// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", func(o *s3.Options) {
//	    o.Prefix = "scans/site-a/"
//	    o.Region = "eu-central-1"
//	})
//
//	w, err := e57go.Create(ctx, store)
//
// # Features
//
//   - Range reads, so point readers fetch one page per request
//   - Multipart streaming uploads for large column blocks and images
//   - Automatic pagination for listing
//   - CommitStore: DynamoDB conditional writes for the CURRENT pointer,
//     so concurrent writers cannot silently overwrite each other's commit
package s3
