// Package blob persists the serialized weather cache as a single opaque blob
// under a fixed well-known key. Backends support existence checks, whole-blob
// reads, and whole-blob overwrites; there are no partial or append writes.
package blob

import (
	"context"
	"errors"
)

// DefaultKey is the well-known name the cache blob lives under.
const DefaultKey = "weather-cache.json"

// ErrNotExist is returned by Read when no blob has ever been written.
var ErrNotExist = errors.New("cache blob does not exist")

// Store is the durable-storage contract for the cache blob.
type Store interface {
	// Name identifies the backend for logs and metrics ("file", "memcached", "s3").
	Name() string
	// Read returns the complete blob, or ErrNotExist when absent.
	Read(ctx context.Context) ([]byte, error)
	// Exists reports whether the blob is present without reading it.
	Exists(ctx context.Context) (bool, error)
	// Write replaces the complete blob contents.
	Write(ctx context.Context, data []byte) error
}
