// Package store defines the conditional-write object store contract that the
// queue protocol is built on.
//
// The single primitive is a generation-matched write: Load returns an opaque
// generation alongside the bytes, and Save only succeeds if the live
// generation still matches. Everything the tick engine guarantees (at most
// one active job, at-most-one launch per entry) derives from this primitive;
// there is no lock service.
//
// Drivers:
//
//   - store/gcs: Google Cloud Storage, the production target. Generations are
//     GCS object generations; conditional writes use GenerationMatch and
//     DoesNotExist preconditions.
//   - store/pebble: local Pebble-backed driver for development, carrying a
//     synthetic generation header per key.
//   - store/memory: in-process driver for tests.
package store
