// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider (MinIO,
// Supabase storage, AWS S3).
package storage

import (
	"context"
	"io"
)

// Storage is the interface for uploading, listing, and removing objects.
type Storage interface {
	// Upload streams data to the store under the given key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
	// ListKeys returns up to limit object keys under prefix, lexically after
	// startAfter. A page shorter than limit means the listing is exhausted;
	// callers must loop, not assume one page covers the bucket.
	ListKeys(ctx context.Context, prefix, startAfter string, limit int) ([]string, error)
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}
