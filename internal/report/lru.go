package report

import (
	lru "github.com/hashicorp/golang-lru"
)

// LRUStore is an in-memory LRU cache that delegates to a backing Store on miss.
type LRUStore struct {
	cache *lru.Cache
	back  Store
}

// NewLRUStore creates an LRU cache with the given capacity that delegates
// to back on cache misses. Capacity below 1 is raised to 1.
func NewLRUStore(size int, back Store) *LRUStore {
	if size < 1 {
		size = 1
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New(size)
	return &LRUStore{cache: cache, back: back}
}

// Save caches the report and writes it to the backing store.
func (s *LRUStore) Save(r *Report) error {
	s.cache.Add(r.ID, r)
	return s.back.Save(r)
}

// Load checks the cache first. On miss, it loads from the backing store
// and promotes the report into the cache.
func (s *LRUStore) Load(runID string) (*Report, error) {
	if v, ok := s.cache.Get(runID); ok {
		return v.(*Report), nil
	}
	r, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(runID, r)
	return r, nil
}
