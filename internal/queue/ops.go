package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ivana-meshed/mmm-app-sub001/internal/ledger"
	storepkg "github.com/ivana-meshed/mmm-app-sub001/internal/store"
	logpkg "github.com/ivana-meshed/mmm-app-sub001/pkg/log"
)

// ErrInvalidQueueName is returned for queue names outside [a-z0-9_-]{1,64}.
var ErrInvalidQueueName = errors.New("queue: invalid queue name")

// Sentinel errors the HTTP surface maps onto statuses.
var (
	ErrEntryNotFound = errors.New("queue: entry not found")
	ErrEntryActive   = errors.New("queue: entry is active")
	ErrContention    = errors.New("queue: contention")
)

// Enqueue appends a PENDING entry carrying the opaque params blob and returns
// it. The id is the next monotonic id for the document; ids are never reused.
func (e *Engine) Enqueue(ctx context.Context, queue string, params json.RawMessage) (*JobEntry, error) {
	if !ValidQueueName(queue) {
		return nil, ErrInvalidQueueName
	}
	if len(params) == 0 || !json.Valid(params) {
		return nil, errors.New("queue: params must be a valid JSON value")
	}

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		doc, gen, err := e.docs.Load(ctx, queue)
		if err != nil {
			return nil, err
		}
		entry := &JobEntry{
			ID:          doc.AllocateID(),
			Params:      params,
			Status:      StatusPending,
			SubmittedAt: e.stamp(),
		}
		doc.Entries = append(doc.Entries, entry)
		if err := e.docs.Save(ctx, queue, doc, gen); err != nil {
			if errors.Is(err, storepkg.ErrConflict) {
				continue
			}
			return nil, err
		}
		e.logger.Info("enqueued entry", logpkg.Str("queue", queue), logpkg.Int64("id", entry.ID))
		return entry, nil
	}
	return nil, fmt.Errorf("queue %s: enqueue: %w", queue, ErrContention)
}

// SetRunning pauses or resumes the queue. Pausing halts all future leasing
// but does not affect an already running job.
func (e *Engine) SetRunning(ctx context.Context, queue string, running bool) error {
	if !ValidQueueName(queue) {
		return ErrInvalidQueueName
	}
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		doc, gen, err := e.docs.Load(ctx, queue)
		if err != nil {
			return err
		}
		if doc.QueueRunning == running {
			return nil
		}
		doc.QueueRunning = running
		if err := e.docs.Save(ctx, queue, doc, gen); err != nil {
			if errors.Is(err, storepkg.ErrConflict) {
				continue
			}
			return err
		}
		e.logger.Info("queue running flag set", logpkg.Str("queue", queue), logpkg.Bool("running", running))
		return nil
	}
	return fmt.Errorf("queue %s: set running: %w", queue, ErrContention)
}

// Remove deletes a non-active entry, an operator repair operation. Active
// entries are refused because their backend execution would be orphaned.
func (e *Engine) Remove(ctx context.Context, queue string, id int64) error {
	if !ValidQueueName(queue) {
		return ErrInvalidQueueName
	}
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		doc, gen, err := e.docs.Load(ctx, queue)
		if err != nil {
			return err
		}
		ent := doc.Entry(id)
		if ent == nil {
			return fmt.Errorf("queue %s: no entry %d: %w", queue, id, ErrEntryNotFound)
		}
		if ent.Status.Active() {
			return fmt.Errorf("queue %s: entry %d is %s, refusing removal: %w", queue, id, ent.Status, ErrEntryActive)
		}
		doc.RemoveEntries([]int64{id})
		if err := e.docs.Save(ctx, queue, doc, gen); err != nil {
			if errors.Is(err, storepkg.ErrConflict) {
				continue
			}
			return err
		}
		e.logger.Info("removed entry", logpkg.Str("queue", queue), logpkg.Int64("id", id))
		return nil
	}
	return fmt.Errorf("queue %s: remove: %w", queue, ErrContention)
}

// Snapshot returns the queue's current document.
func (e *Engine) Snapshot(ctx context.Context, queue string) (*Document, error) {
	if !ValidQueueName(queue) {
		return nil, ErrInvalidQueueName
	}
	doc, _, err := e.docs.Load(ctx, queue)
	return doc, err
}

// History returns the archived ledger's columns and rows for the queue.
func (e *Engine) History(ctx context.Context, queue string) ([]string, []ledger.Row, error) {
	if !ValidQueueName(queue) {
		return nil, nil, ErrInvalidQueueName
	}
	return e.ledger.Rows(ctx, queue)
}

// FilterEntries returns the queue's entries matching the optional CEL
// expression. An empty expression matches everything.
func (e *Engine) FilterEntries(ctx context.Context, queue, expr string) ([]*JobEntry, error) {
	doc, err := e.Snapshot(ctx, queue)
	if err != nil {
		return nil, err
	}
	filter, err := newEntryFilter(expr)
	if err != nil {
		return nil, err
	}
	out := make([]*JobEntry, 0, len(doc.Entries))
	for _, ent := range doc.Entries {
		if filter.Eval(ent) {
			out = append(out, ent)
		}
	}
	return out, nil
}
