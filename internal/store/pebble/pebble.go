package pebblestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	storepkg "github.com/ivana-meshed/mmm-app-sub001/internal/store"
)

// FsyncMode defines durability behavior for writes.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways requests a WAL fsync on each write.
	FsyncModeAlways
	// FsyncModeInterval lets Pebble coalesce WAL syncs within the configured
	// group-commit window.
	FsyncModeInterval
	// FsyncModeNever leaves syncing to Pebble's own policies. Trades
	// durability latency for throughput.
	FsyncModeNever
)

// Options configures the Pebble-backed store.
type Options struct {
	// DataDir is the Pebble database directory. Required.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval is the group-commit window for FsyncModeInterval.
	FsyncInterval time.Duration
}

// Store implements store.Store on a local Pebble database, used for
// development and tests. Each value carries an 8-byte big-endian generation
// header followed by the payload; the check-and-swap in Save runs under a
// process-wide mutex, which is sufficient because a Pebble directory has a
// single process owner by construction.
type Store struct {
	db        *pebble.DB
	writeSync bool

	mu sync.Mutex
}

// Open creates or opens the Pebble database.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}

	po := &pebble.Options{}
	switch opts.Fsync {
	case FsyncModeAlways:
		// Sync requested per write below.
	case FsyncModeInterval:
		interval := opts.FsyncInterval
		if interval <= 0 {
			interval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return interval }
	case FsyncModeNever:
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	db, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("pebble: open %s: %w", opts.DataDir, err)
	}
	return &Store{db: db, writeSync: opts.Fsync == FsyncModeAlways}, nil
}

// Load returns the payload and generation for key.
func (s *Store) Load(_ context.Context, key string) ([]byte, int64, error) {
	val, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, storepkg.GenerationCreate, storepkg.ErrNotFound
		}
		return nil, 0, fmt.Errorf("pebble: get %s: %w", key, err)
	}
	defer closer.Close()

	if len(val) < 8 {
		return nil, 0, fmt.Errorf("pebble: corrupt value for %s: %d bytes", key, len(val))
	}
	gen := int64(binary.BigEndian.Uint64(val[:8]))
	data := append([]byte(nil), val[8:]...)
	return data, gen, nil
}

// Save performs the conditional write. The live generation is re-read under
// the mutex so two racing Saves with the same expected generation cannot both
// succeed.
func (s *Store) Save(_ context.Context, key string, data []byte, expectedGen int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := storepkg.GenerationCreate
	val, closer, err := s.db.Get([]byte(key))
	switch {
	case err == nil:
		if len(val) < 8 {
			closer.Close()
			return fmt.Errorf("pebble: corrupt value for %s: %d bytes", key, len(val))
		}
		live = int64(binary.BigEndian.Uint64(val[:8]))
		closer.Close()
	case errors.Is(err, pebble.ErrNotFound):
		// live stays at the create sentinel
	default:
		return fmt.Errorf("pebble: get %s: %w", key, err)
	}

	if live != expectedGen {
		return storepkg.ErrConflict
	}

	out := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(out[:8], uint64(live+1))
	copy(out[8:], data)

	wo := pebble.NoSync
	if s.writeSync {
		wo = pebble.Sync
	}
	if err := s.db.Set([]byte(key), out, wo); err != nil {
		return fmt.Errorf("pebble: set %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
