// Package memstore provides an in-process implementation of the conditional
// write store, primarily for tests. Hooks allow tests to interleave racing
// writers at precise points to exercise the conflict-retry paths.
package memstore
