// Package storage defines the blob store contract used by the pipeline.
// Every backend (local file system, GCS, S3/MinIO) is addressed through the same
// (bucket, objectName) operations so the lifecycle code never depends on a vendor SDK.
package storage

import (
	"context"
	"errors"
	"io"

	coreAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/adapter"
)

// ErrObjectNotFound is returned (wrapped) by Download and Copy when the source object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// StorageExecutor defines generic blob store operations.
// There is no versioning and there are no conditional writes.
type StorageExecutor interface {
	// Upload writes data to the specified bucket and object name, replacing any existing object.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the object for reading. The caller must close the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// Copy duplicates sourceObject into destObject within the same bucket.
	Copy(ctx context.Context, bucket, sourceObject, destObject string) error
	// ListObjects calls fn for each object under prefix, in lexical key order.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named, closable StorageExecutor.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}

// StorageProvider manages the connections of one backend type.
type StorageProvider interface {
	coreAdapter.ResourceProvider[StorageConnection]
}

// StorageConnectionResolver picks the provider matching a named configuration.
type StorageConnectionResolver interface {
	// ResolveStorageConnection returns the connection configured under name.
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// ReadAll downloads an object fully into memory.
func ReadAll(ctx context.Context, s StorageExecutor, bucket, objectName string) ([]byte, error) {
	rc, err := s.Download(ctx, bucket, objectName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Exists reports whether an object can be downloaded.
func Exists(ctx context.Context, s StorageExecutor, bucket, objectName string) (bool, error) {
	rc, err := s.Download(ctx, bucket, objectName)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, rc.Close()
}
