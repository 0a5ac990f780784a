package memstore

import (
	"context"
	"sync"

	storepkg "github.com/ivana-meshed/mmm-app-sub001/internal/store"
)

type object struct {
	data []byte
	gen  int64
}

// Store is an in-process store.Store used by tests and as a scratch backend.
// It honors the same conditional-write contract as the real drivers, and can
// inject hooks to deterministically exercise conflict paths.
type Store struct {
	mu      sync.Mutex
	objects map[string]*object

	// OnLoad and OnSave, when set, run before the corresponding operation
	// while the store lock is NOT held. Tests use them to interleave writers.
	OnLoad func(key string)
	OnSave func(key string)
}

// New returns an empty memory store.
func New() *Store { return &Store{objects: make(map[string]*object)} }

// Load implements store.Store.
func (s *Store) Load(_ context.Context, key string) ([]byte, int64, error) {
	if s.OnLoad != nil {
		s.OnLoad(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, storepkg.GenerationCreate, storepkg.ErrNotFound
	}
	return append([]byte(nil), obj.data...), obj.gen, nil
}

// Save implements store.Store.
func (s *Store) Save(_ context.Context, key string, data []byte, expectedGen int64) error {
	if s.OnSave != nil {
		s.OnSave(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[key]
	live := storepkg.GenerationCreate
	if ok {
		live = obj.gen
	}
	if live != expectedGen {
		return storepkg.ErrConflict
	}
	s.objects[key] = &object{data: append([]byte(nil), data...), gen: live + 1}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Generation returns the live generation for key, or the create sentinel.
func (s *Store) Generation(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.objects[key]; ok {
		return obj.gen
	}
	return storepkg.GenerationCreate
}
