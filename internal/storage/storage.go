// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider (MinIO, AWS S3).
package storage

import (
	"context"
	"time"
)

// Entry describes one object returned by a prefix listing.
type Entry struct {
	Key          string
	LastModified time.Time
}

// Storage is the capability set the media lifecycle needs from an object store.
type Storage interface {
	// Stat reports whether an object exists at key. A missing object is
	// (false, nil); any other failure is returned as an error.
	Stat(ctx context.Context, key string) (bool, error)
	// Get fetches the full object body.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes data under key. cacheControl may be empty.
	Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) error
	// Copy performs a server-side copy from srcKey to dstKey.
	Copy(ctx context.Context, srcKey, dstKey string) error
	// RemoveBatch deletes up to the store's per-request maximum of keys.
	// Deleting a key that does not exist is not an error.
	RemoveBatch(ctx context.Context, keys []string) error
	// Walk streams every object under prefix to fn in listing order.
	// A non-nil error from fn stops the walk and is returned.
	Walk(ctx context.Context, prefix string, fn func(Entry) error) error
	// PresignPut returns a time-limited URL authorizing a single PUT of the
	// given content type to exactly key.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}
