package api

import (
	"context"
	"fmt"
	"io"
)

// NotFound is returned when a blob or catalog record doesn't exist.
type NotFound struct {
	Key string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.Key)
}

func (e *NotFound) Is(err error) bool {
	_, ok := err.(*NotFound)
	return ok
}

// Blob is an open blob, readable at any offset. sstables are read from the
// end (footer, then properties block) so this is all a reader needs.
type Blob interface {
	io.ReaderAt
	Size() int64
}

// BlobStore stores finished sstables.
type BlobStore interface {
	// Put stores the contents of r under key. It fails if key already exists.
	Put(ctx context.Context, key string, r io.ReadSeeker) error

	// Open returns a handle to read the blob under key. The context is used
	// for every read from the blob.
	Open(ctx context.Context, key string) (Blob, error)

	Delete(ctx context.Context, key string) error

	// List returns every key in the store, in lexical order.
	List(ctx context.Context) ([]string, error)
}
