package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	c *gocache.Cache

	mu   sync.Mutex
	tags map[string]map[string]struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore that purges expired entries every
// cleanupInterval
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		c:    gocache.New(gocache.NoExpiration, cleanupInterval),
		tags: make(map[string]map[string]struct{}),
	}
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry := v.(*Entry)
	if entry.Expired(time.Now()) {
		s.c.Delete(key)
		return nil, false, nil
	}
	return entry, true, nil
}

// Set implements Store
func (s *MemoryStore) Set(ctx context.Context, key string, value any, expiresAt time.Time, tags []string) error {
	now := time.Now()
	entry := &Entry{
		Key:       key,
		Value:     value,
		ExpiresAt: expiresAt,
		Tags:      tags,
		CreatedAt: now,
	}
	if entry.Expired(now) {
		s.c.Delete(key)
		return nil
	}

	d := gocache.NoExpiration
	if !expiresAt.IsZero() {
		d = expiresAt.Sub(now)
	}
	s.c.Set(key, entry, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range tags {
		keys, ok := s.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

// Delete implements Store
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		s.c.Delete(key)
	}
	return nil
}

// InvalidateTags implements Store
func (s *MemoryStore) InvalidateTags(ctx context.Context, tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range tags {
		for key := range s.tags[tag] {
			s.c.Delete(key)
		}
		delete(s.tags, tag)
	}
	return nil
}

// Clear implements Store
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.c.Flush()
	s.mu.Lock()
	s.tags = make(map[string]map[string]struct{})
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// purged
func (s *MemoryStore) Len() int {
	return s.c.ItemCount()
}
