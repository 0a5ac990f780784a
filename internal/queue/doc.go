// Package queue implements the single-document job queue tick protocol that
// sequences training-job launches against the batch backend.
//
// Unlike a keyspace-per-message work queue, the entire durable state of one
// queue is a single JSON document in the object store. There is no worker
// process and no lock service: concurrency arises from independent callers
// invoking Tick at overlapping times, and all mutual exclusion derives from
// the store's generation-matched conditional write.
//
// # Document
//
// One document per queue name:
//
//	{ "version": 1, "saved_at": "...", "queue_running": true,
//	  "entries": [ { "id": 1, "params": {...}, "status": "PENDING", ... } ] }
//
// A legacy document whose top level is a bare entries array is accepted and
// treated as running.
//
// # Entry lifecycle
//
//	PENDING → LAUNCHING → RUNNING → {SUCCEEDED, FAILED, CANCELLED, ERROR}
//
// LAUNCHING may also go straight to ERROR when the launch call fails. No
// entry ever leaves a terminal status, and at most one entry is LAUNCHING or
// RUNNING at any durable point in time.
//
// # Tick
//
// One Tick performs at most one guarded mutation:
//
//  1. Load the document. Empty or paused queues are no-ops.
//  2. If an active (LAUNCHING/RUNNING) entry exists, reconcile its status
//     against the backend poller.
//  3. Otherwise lease the first PENDING entry by writing it as LAUNCHING with
//     the generation read in step 1. The write succeeding means this caller
//     exclusively owns the launch; every concurrent caller's write fails with
//     a conflict. The launch itself runs outside any retry loop so it happens
//     at most once per leased entry.
//
// Conflicts are expected and transient: the whole decision is retried from a
// fresh load, a bounded number of times, never retrying a side effect that
// has already executed.
//
// # Archiving
//
// Terminal entries are swept out of the live document into the history
// ledger (idempotent merge by job id) and the trimmed document is persisted
// with a guarded write. When work remains, the archiver chains one follow-up
// tick so the queue does not wait for the next external trigger.
package queue
