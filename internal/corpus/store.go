package corpus

import (
	"context"
	"sync"
)

// Store holds the corpus currently under analysis and reloads it from a log
// directory on demand. Readers get an immutable snapshot; a reload swaps the
// snapshot atomically so in-flight requests keep the corpus they started with.
type Store struct {
	dir string

	mu      sync.RWMutex
	current *Corpus
}

// NewStore creates a store over dir. The store is empty until Reload.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Snapshot returns the current corpus, nil before the first successful reload.
func (s *Store) Snapshot() *Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload parses the log directory into a fresh corpus and makes it current.
// On failure the previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (*Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := LoadDir(s.dir)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	return c, nil
}

// Dir returns the directory the store loads from.
func (s *Store) Dir() string {
	return s.dir
}
