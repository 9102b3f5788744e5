// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works against MinIO and other S3-compatible systems such as Ceph,
// SeaweedFS and Garage without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.Dial(ctx, "localhost:9000", "scans", func(o *minio.Options) {
//	    o.AccessKey = "minioadmin"
//	    o.SecretKey = "minioadmin"
//	    o.Prefix = "site-a/"
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, err := e57go.Create(ctx, store)
//
// An existing *minio.Client can be wrapped with NewStore.
package minio
