package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	timestamp time.Time
}

// MemoryStore is an LRU byte cache with TTL. It is the default analysis
// cache backend and the test substitute for the image cache.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	maxSize int
	order   []string // LRU order, oldest first
}

// NewMemoryStore creates a store holding at most maxSize entries for at
// most ttl each.
func NewMemoryStore(maxSize int, ttl time.Duration) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		maxSize: maxSize,
		order:   make([]string, 0, maxSize),
	}
}

// Get returns the value for key, expiring stale entries on access. The
// lookup and the LRU touch happen under one lock so concurrent readers
// cannot duplicate the key in the order list.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}

	if time.Since(entry.timestamp) > s.ttl {
		delete(s.entries, key)
		s.removeFromOrder(key)
		return nil, ErrNotFound
	}

	// Move to end of order (most recently used)
	s.removeFromOrder(key)
	s.order = append(s.order, key)

	return entry.value, nil
}

// Put stores value, evicting the oldest entries at capacity.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.entries) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		delete(s.entries, oldest)
		s.order = s.order[1:]
	}

	s.entries[key] = &memoryEntry{value: value, timestamp: time.Now()}
	s.removeFromOrder(key)
	s.order = append(s.order, key)
	return nil
}

// Exists reports whether key has a live entry.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) removeFromOrder(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
