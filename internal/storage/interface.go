package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Get when the key holds no object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage stores the JSON documents produced by sweeps and consolidation.
// Keys are slash-separated; the first segment groups documents by kind.
type ObjectStorage interface {
	// Put writes data under key, replacing any previous object
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get reads the whole object stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the keys under prefix in ascending lexical order
	List(ctx context.Context, prefix string) ([]string, error)

	// URL returns where a client can fetch the object from
	URL(key string) string

	// EnsureBucket prepares the backing bucket or directory
	EnsureBucket(ctx context.Context) error
}
