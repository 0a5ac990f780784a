// Package id generates compact, time-ordered identifiers used to correlate
// HTTP requests and tick invocations in logs. IDs are 16 bytes, big-endian
// millisecond timestamp followed by a per-process sequence, so they sort
// lexicographically in creation order.
package id
