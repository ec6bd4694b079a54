// Package blobstore provides the storage abstraction for published entity
// store generations.
//
// A generation consists of immutable blobs (embedding matrix, catalog
// snapshot, manifest) plus a small mutable CURRENT pointer. Blobs are written
// once under fresh names and never modified; Put must therefore be atomic
// from a reader's point of view so that a crashed writer never exposes a
// half-written artifact.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, mmap reads, temp-file + rename writes
//   - MemoryStore: in-process map, for tests and ephemeral pipelines
//   - CachingStore: block-level LRU cache in front of a remote store
//   - minio.Store: MinIO and other S3-compatible object stores
//   - s3.Store: Amazon S3, optionally with s3.DDBCommitStore for CURRENT
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
