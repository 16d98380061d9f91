package report

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUStore is an in-memory LRU cache that delegates to a backing Store on miss.
type LRUStore struct {
	cache *lru.Cache[string, *RunResult]
	back  Store
}

// NewLRUStore creates an LRU cache with the given capacity that delegates
// to back on cache misses. Capacity below 1 is raised to 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, *RunResult](cap)
	return &LRUStore{cache: cache, back: back}
}

// Save writes the result to the cache and delegates to the backing store.
func (s *LRUStore) Save(result *RunResult) error {
	s.cache.Add(result.ID, result)
	return s.back.Save(result)
}

// Load checks the cache first. On miss, loads from the backing store
// and promotes the result into the cache.
func (s *LRUStore) Load(runID string) (*RunResult, error) {
	if r, ok := s.cache.Get(runID); ok {
		return r, nil
	}
	result, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(runID, result)
	return result, nil
}

// Len returns the number of cached results.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
