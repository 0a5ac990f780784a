package queue

import (
	"context"
	"errors"
	"time"

	storepkg "github.com/ivana-meshed/mmm-app-sub001/internal/store"
)

// DocStore is the only component that reads or writes queue documents. All
// writes go through the store's conditional primitive, so the engine's
// conflict-detection guarantee cannot be bypassed.
type DocStore struct {
	store  storepkg.Store
	prefix string
	now    func() time.Time
}

// NewDocStore binds a document store to a driver under the given key prefix.
func NewDocStore(s storepkg.Store, prefix string) *DocStore {
	return &DocStore{store: s, prefix: prefix, now: time.Now}
}

func (d *DocStore) key(queue string) string {
	return d.prefix + "queues/" + queue + ".json"
}

// Load returns the queue's document and generation. A queue with no stored
// document yields the default document and the create sentinel, so the first
// Save is conditional on the object still being absent.
func (d *DocStore) Load(ctx context.Context, queue string) (*Document, int64, error) {
	data, gen, err := d.store.Load(ctx, d.key(queue))
	if err != nil {
		if errors.Is(err, storepkg.ErrNotFound) {
			return NewDocument(), storepkg.GenerationCreate, nil
		}
		return nil, 0, err
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, 0, err
	}
	return doc, gen, nil
}

// Save persists the document guarded by expectedGen, stamping saved_at.
// A stale generation surfaces as store.ErrConflict with no partial mutation.
func (d *DocStore) Save(ctx context.Context, queue string, doc *Document, expectedGen int64) error {
	doc.Version = DocumentVersion
	doc.SavedAt = d.now().UTC()
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	return d.store.Save(ctx, d.key(queue), data, expectedGen)
}
