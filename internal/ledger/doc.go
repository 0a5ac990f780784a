// Package ledger maintains the append-merge history of completed jobs: one
// CSV object per queue, rows keyed by job id, columns covering the job's
// enqueue-time params plus final state and execution identifiers.
//
// The merge is per-row and idempotent (first non-empty value wins per
// column), which lets the archiver re-apply an upsert after a write conflict
// without duplicating or mutating rows that already landed. At-least-once
// delivery from the archiver therefore converges to exactly-once content.
package ledger
