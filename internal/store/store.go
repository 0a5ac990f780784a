package store

import (
	"context"
	"errors"
)

// GenerationCreate is the sentinel generation returned by Load when an object
// does not exist. A Save with this generation must be conditional on the
// object still being absent, so concurrent creators cannot clobber each other.
const GenerationCreate int64 = 0

// ErrNotFound is returned by Load when no object exists under the key.
var ErrNotFound = errors.New("store: object not found")

// ErrConflict is returned by Save when the object's live generation no longer
// matches the expected one. It is the expected concurrency-control signal,
// not a failure: callers discard their in-memory state and retry from Load.
var ErrConflict = errors.New("store: generation conflict")

// Store is a byte-oriented object store with optimistic concurrency control.
// Every implementation must guarantee that Save applies either completely or
// not at all, and that a Save with a stale generation fails with ErrConflict.
type Store interface {
	// Load returns the object's bytes and its current generation.
	// A missing object yields ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, int64, error)

	// Save writes data conditionally: it succeeds only if the live generation
	// still equals expectedGen (or the object is absent when expectedGen is
	// GenerationCreate). Otherwise it returns ErrConflict.
	Save(ctx context.Context, key string, data []byte, expectedGen int64) error

	// Close releases underlying resources.
	Close() error
}
