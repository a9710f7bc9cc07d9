package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the keys written by RedisStore
const DefaultRedisPrefix = "dataprovider:"

// RedisStore keeps entries in Redis. Values are stored as JSON, so integer
// values come back as float64. Tags are Redis sets of entry keys.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

type redisEntry struct {
	Value     any       `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRedisStore creates a RedisStore. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) entryKey(key string) string {
	return s.prefix + "entry:" + key
}

func (s *RedisStore) tagKey(tag string) string {
	return s.prefix + "tag:" + tag
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	b, err := s.client.Get(ctx, s.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, redisError(err, key)
	}

	var re redisEntry
	if err := json.Unmarshal(b, &re); err != nil {
		return nil, false, nil
	}
	entry := &Entry{
		Key:       key,
		Value:     re.Value,
		ExpiresAt: re.ExpiresAt,
		Tags:      re.Tags,
		CreatedAt: re.CreatedAt,
	}
	if entry.Expired(time.Now()) {
		return nil, false, nil
	}
	return entry, true, nil
}

// Set implements Store
func (s *RedisStore) Set(ctx context.Context, key string, value any, expiresAt time.Time, tags []string) error {
	now := time.Now()
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(now)
		if ttl <= 0 {
			return s.Delete(ctx, key)
		}
	}

	b, err := json.Marshal(redisEntry{
		Value:     value,
		ExpiresAt: expiresAt,
		Tags:      tags,
		CreatedAt: now,
	})
	if err != nil {
		return failure.New(ErrCache,
			failure.Message("Cache value is not serializable"),
			failure.Context{"key": key, "error": err.Error()},
		)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(key), b, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, s.tagKey(tag), key)
		}
		return nil
	})
	if err != nil {
		return redisError(err, key)
	}
	return nil
}

// Delete implements Store
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	entryKeys := make([]string, len(keys))
	for i, key := range keys {
		entryKeys[i] = s.entryKey(key)
	}
	if err := s.client.Del(ctx, entryKeys...).Err(); err != nil {
		return redisError(err, "")
	}
	return nil
}

// InvalidateTags implements Store
func (s *RedisStore) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		keys, err := s.client.SMembers(ctx, s.tagKey(tag)).Result()
		if err != nil {
			return redisError(err, "")
		}
		if err := s.Delete(ctx, keys...); err != nil {
			return err
		}
		if err := s.client.Del(ctx, s.tagKey(tag)).Err(); err != nil {
			return redisError(err, "")
		}
	}
	return nil
}

// Clear implements Store
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return redisError(err, "")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return redisError(err, "")
	}
	return nil
}

func redisError(err error, key string) error {
	return failure.New(ErrCache,
		failure.Message("Redis cache operation failed"),
		failure.Context{"key": key, "error": err.Error()},
	)
}
