// Package blobstore provides the storage abstraction behind an e57go container.
//
// A container is a set of named blobs: the CURRENT pointer, versioned
// manifests, one column block per Data3D points and groups table, and one
// blob per image representation. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests and scratch containers
//   - LocalStore: local filesystem, mmap-backed reads on unix
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - s3.CommitStore: S3 plus DynamoDB conditional writes for CURRENT
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
// Implement BlobStore to support other backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Point readers issue one ReadAt per page, so backends only need positioned
// range reads to serve chunked transfers.
package blobstore
