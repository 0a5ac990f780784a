// Package pebblestore implements the conditional-write store on a local
// Pebble database. It exists so the queue protocol can run without GCS during
// development and in tests; generations are synthesized as a per-key counter
// stored in an 8-byte value header.
package pebblestore
