// Package cache provides the stores that hold transformed resource data,
// keyed by resource and invalidated by expiration or by tag.
package cache

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
)

// ErrorCode defines error types for cache operations
type ErrorCode string

const (
	// ErrCache represents backend failures
	ErrCache ErrorCode = "CacheError"

	// ErrInvalidExpiration is returned for unparsable expiration expressions
	ErrInvalidExpiration ErrorCode = "InvalidExpiration"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Permanent is the expiration of entries that never expire
var Permanent = time.Time{}

// Entry represents a cached item
type Entry struct {
	Key       string
	Value     any
	ExpiresAt time.Time
	Tags      []string
	CreatedAt time.Time
}

// Expired reports whether the entry is no longer valid at now
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Store is a key-value store with expiration and tag invalidation.
// Implementations are safe for concurrent use.
type Store interface {
	// Get returns the live entry for key. ok is false on a miss.
	Get(ctx context.Context, key string) (entry *Entry, ok bool, err error)

	// Set stores value under key until expiresAt (Permanent for no
	// expiration), attached to tags.
	Set(ctx context.Context, key string, value any, expiresAt time.Time, tags []string) error

	// Delete removes keys
	Delete(ctx context.Context, keys ...string) error

	// InvalidateTags removes every entry attached to any of tags
	InvalidateTags(ctx context.Context, tags ...string) error

	// Clear removes all entries
	Clear(ctx context.Context) error
}

// MergeTags returns the sorted union of tag lists
func MergeTags(lists ...[]string) []string {
	merged := lo.Uniq(lo.Flatten(lists))
	merged = lo.Compact(merged)
	sort.Strings(merged)
	return merged
}
