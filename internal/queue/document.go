package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// DocumentVersion is the current schema version of the queue document.
const DocumentVersion = 1

var queueNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidQueueName reports whether name is an acceptable queue name.
func ValidQueueName(name string) bool { return queueNameRe.MatchString(name) }

// Document is the durable state of one queue. Ordering of Entries is
// insertion order and is never re-sorted. NextID is the persisted id counter;
// it only grows, so ids survive removal and archiving of the entries that
// carried them.
type Document struct {
	Version      int         `json:"version"`
	SavedAt      time.Time   `json:"saved_at"`
	QueueRunning bool        `json:"queue_running"`
	NextID       int64       `json:"next_id"`
	Entries      []*JobEntry `json:"entries"`
}

// NewDocument returns the default document for a queue that has no stored
// state yet: running, with no entries.
func NewDocument() *Document {
	return &Document{Version: DocumentVersion, QueueRunning: true, NextID: 1, Entries: []*JobEntry{}}
}

// DecodeDocument parses a stored queue document. A top-level bare array is
// the legacy wire format and is treated as {entries: array, queue_running: true}.
func DecodeDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []*JobEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("queue: decode legacy document: %w", err)
		}
		doc := &Document{Version: DocumentVersion, QueueRunning: true, Entries: entries}
		doc.normalizeNextID()
		return doc, nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("queue: decode document: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Entries == nil {
		doc.Entries = []*JobEntry{}
	}
	doc.normalizeNextID()
	return &doc, nil
}

// normalizeNextID seeds the id counter for documents written before the
// counter existed, or hand-edited below the live entries. It never lowers it.
func (d *Document) normalizeNextID() {
	if next := maxEntryID(d.Entries) + 1; d.NextID < next {
		d.NextID = next
	}
}

func maxEntryID(entries []*JobEntry) int64 {
	var max int64
	for _, e := range entries {
		if e.ID > max {
			max = e.ID
		}
	}
	return max
}

// Encode serializes the document for storage.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("queue: encode document: %w", err)
	}
	return data, nil
}

// ErrMultipleActive is reported when more than one entry is LAUNCHING or
// RUNNING. That state can only arise through external edits of the document;
// it is surfaced as a hard consistency error rather than silently picking one.
type ErrMultipleActive struct {
	IDs []int64
}

func (e *ErrMultipleActive) Error() string {
	return fmt.Sprintf("queue: document invariant violated: %d active entries %v", len(e.IDs), e.IDs)
}

// ActiveEntry returns the single LAUNCHING or RUNNING entry, nil when there
// is none, or *ErrMultipleActive when the invariant is broken.
func (d *Document) ActiveEntry() (*JobEntry, error) {
	var active *JobEntry
	var ids []int64
	for _, e := range d.Entries {
		if e.Status.Active() {
			if active == nil {
				active = e
			}
			ids = append(ids, e.ID)
		}
	}
	if len(ids) > 1 {
		return nil, &ErrMultipleActive{IDs: ids}
	}
	return active, nil
}

// FirstPending returns the first PENDING entry in list order, or nil.
func (d *Document) FirstPending() *JobEntry {
	for _, e := range d.Entries {
		if e.Status == StatusPending {
			return e
		}
	}
	return nil
}

// Entry returns the entry with the given id, or nil.
func (d *Document) Entry(id int64) *JobEntry {
	for _, e := range d.Entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// AllocateID returns the next entry id and advances the persisted counter.
// Ids are never reused: the counter outlives removal and archiving of the
// entries that consumed earlier ids.
func (d *Document) AllocateID() int64 {
	d.normalizeNextID()
	id := d.NextID
	d.NextID++
	return id
}

// TerminalEntries returns the entries eligible for archiving, in list order.
func (d *Document) TerminalEntries() []*JobEntry {
	var out []*JobEntry
	for _, e := range d.Entries {
		if e.Status.Terminal() {
			out = append(out, e)
		}
	}
	return out
}

// RemoveEntries deletes the entries with the given ids, preserving the order
// of the remainder.
func (d *Document) RemoveEntries(ids []int64) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := d.Entries[:0]
	for _, e := range d.Entries {
		if _, gone := drop[e.ID]; !gone {
			kept = append(kept, e)
		}
	}
	d.Entries = kept
}
