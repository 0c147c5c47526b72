package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage defines the interface for object storage operations.
// The pipeline only ever requests a write-scoped upload URL at intake and a
// read of the stored bytes at extraction; objects are never mutated after
// the initial upload.
type ObjectStorage interface {
	// PresignUpload returns a time-boxed URL authorizing a single PUT of the
	// given content type to exactly one object key.
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// Download downloads an object from storage
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// Delete deletes an object from storage
	Delete(ctx context.Context, key string) error
}
