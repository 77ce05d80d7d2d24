package embedding

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheStore is an LRU cache of entry vectors, keyed by (model, entry
// identity). Entry identities are stable across repeated parses, so a warm
// cache makes index refreshes over overlapping corpora cheap.
type CacheStore struct {
	lru   *lru.Cache[string, []float32]
	model string
}

// NewCacheStore creates a cache bounded to size vectors.
func NewCacheStore(size int, modelID string) (*CacheStore, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &CacheStore{lru: c, model: modelID}, nil
}

// Get returns the cached vector for an entry identity.
func (cs *CacheStore) Get(entryID string) ([]float32, bool) {
	return cs.lru.Get(cs.key(entryID))
}

// Put stores the vector for an entry identity.
func (cs *CacheStore) Put(entryID string, vec []float32) {
	cs.lru.Add(cs.key(entryID), vec)
}

// Len returns the number of cached vectors.
func (cs *CacheStore) Len() int {
	return cs.lru.Len()
}

// Purge drops all cached vectors.
func (cs *CacheStore) Purge() {
	cs.lru.Purge()
}

func (cs *CacheStore) key(entryID string) string {
	return cs.model + "|" + entryID
}
