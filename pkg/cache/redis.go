package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisConfig holds the Redis store configuration.
type RedisConfig struct {
	// DefaultTTL applies when Set options leave the TTL unset.
	// Defaults to DefaultTTL.
	DefaultTTL time.Duration

	// KeyPrefix namespaces all keys written by the store.
	// Defaults to "sitecache:".
	KeyPrefix string
}

// RedisStore is a Redis-backed cache store. Entries survive process restarts
// and invalidation is visible to every instance sharing the Redis database.
//
// Entries are serialized with msgpack. The physical Redis TTL is the logical
// TTL plus the stale window, so GetStale can still serve an expired entry;
// logical expiry is checked lazily at read time like the memory store.
// Redis manages its own memory, so LRU eviction and MaxEntries do not apply
// and Stats reports Size/MaxSize as 0.
type RedisStore[T any] struct {
	client     *redis.Client
	defaultTTL time.Duration
	prefix     string

	hits      atomic.Int64
	misses    atomic.Int64
	staleHits atomic.Int64
}

// NewRedisStore creates a Redis-backed cache store.
func NewRedisStore[T any](client *redis.Client, cfg RedisConfig) *RedisStore[T] {
	if client == nil {
		panic("redis client cannot be nil")
	}
	defaultTTL := cfg.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "sitecache:"
	}
	return &RedisStore[T]{
		client:     client,
		defaultTTL: defaultTTL,
		prefix:     prefix,
	}
}

func (s *RedisStore[T]) entryKey(key string) string   { return s.prefix + "entry:" + key }
func (s *RedisStore[T]) tagKey(tag string) string     { return s.prefix + "tag:" + tag }
func (s *RedisStore[T]) keyTagsKey(key string) string { return s.prefix + "keytags:" + key }

// Get retrieves a fresh entry by key.
// Returns ErrCacheMiss if the key is absent or the entry has expired.
func (s *RedisStore[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	entry, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}

	if entry.IsExpired() {
		s.misses.Add(1)
		CacheMisses.WithLabelValues(storeLabelRedis).Inc()
		return nil, ErrCacheMiss
	}

	s.hits.Add(1)
	CacheHits.WithLabelValues(storeLabelRedis).Inc()
	return entry, nil
}

// GetStale retrieves an entry by key even if it has logically expired, as
// long as Redis still holds it (physical TTL covers the stale window).
func (s *RedisStore[T]) GetStale(ctx context.Context, key string) (*Entry[T], error) {
	entry, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}

	if entry.IsExpired() {
		s.staleHits.Add(1)
		CacheStaleHits.WithLabelValues(storeLabelRedis).Inc()
		return entry, nil
	}

	s.hits.Add(1)
	CacheHits.WithLabelValues(storeLabelRedis).Inc()
	return entry, nil
}

// load fetches and decodes an entry without touching hit/stale counters.
func (s *RedisStore[T]) load(ctx context.Context, key string) (*Entry[T], error) {
	data, err := s.client.Get(ctx, s.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			CacheMisses.WithLabelValues(storeLabelRedis).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry[T]
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}

// Set stores a new entry under key, replacing any existing entry and its tag
// associations.
func (s *RedisStore[T]) Set(ctx context.Context, key string, data T, version string, opts Options) (*Entry[T], error) {
	entry, err := newEntry(data, version, opts, s.defaultTTL)
	if err != nil {
		return nil, err
	}

	payload, err := msgpack.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}

	// Keep the entry around for the stale window past logical expiry.
	// Immediately-expired entries get a short floor so strict reads still
	// observe them as expired rather than absent.
	physTTL := time.Until(entry.ExpiresAt) + entry.StaleFor
	if physTTL < time.Second {
		physTTL = time.Second
	}

	// Old tag associations must not linger when the tag set changes.
	oldTags, err := s.client.SMembers(ctx, s.keyTagsKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		CacheErrors.WithLabelValues("set").Inc()
		return nil, fmt.Errorf("redis smembers: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, tag := range oldTags {
		pipe.SRem(ctx, s.tagKey(tag), key)
	}
	pipe.Del(ctx, s.keyTagsKey(key))
	pipe.Set(ctx, s.entryKey(key), payload, physTTL)
	if len(opts.Tags) > 0 {
		tagMembers := make([]interface{}, len(opts.Tags))
		for i, tag := range opts.Tags {
			tagMembers[i] = tag
			pipe.SAdd(ctx, s.tagKey(tag), key)
		}
		pipe.SAdd(ctx, s.keyTagsKey(key), tagMembers...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return nil, fmt.Errorf("redis set: %w", err)
	}

	return entry, nil
}

// Delete removes an entry and its tag associations. Returns whether the key
// was present.
func (s *RedisStore[T]) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := s.removeEntry(ctx, key)
	if err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return false, err
	}
	return removed, nil
}

// removeEntry deletes one entry plus its tag bookkeeping. Returns whether an
// entry actually existed.
func (s *RedisStore[T]) removeEntry(ctx context.Context, key string) (bool, error) {
	tags, err := s.client.SMembers(ctx, s.keyTagsKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("redis smembers: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, tag := range tags {
		pipe.SRem(ctx, s.tagKey(tag), key)
	}
	pipe.Del(ctx, s.keyTagsKey(key))
	del := pipe.Del(ctx, s.entryKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}

	return del.Val() > 0, nil
}

// InvalidateByTag removes every entry associated with tag and returns the
// number removed. Keys whose entries already fell out of Redis (physical
// TTL) are not counted.
func (s *RedisStore[T]) InvalidateByTag(ctx context.Context, tag string) (int, error) {
	keys, err := s.client.SMembers(ctx, s.tagKey(tag)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis smembers: %w", err)
	}

	removed := 0
	for _, key := range keys {
		existed, err := s.removeEntry(ctx, key)
		if err != nil {
			CacheErrors.WithLabelValues("invalidate").Inc()
			return removed, err
		}
		if existed {
			removed++
		}
	}

	if err := s.client.Del(ctx, s.tagKey(tag)).Err(); err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return removed, fmt.Errorf("redis del: %w", err)
	}

	CacheInvalidations.WithLabelValues(storeLabelRedis).Add(float64(removed))
	return removed, nil
}

// Clear removes every key written by this store (matched by prefix).
// Hit/miss counters are kept; only ResetStats zeroes them.
func (s *RedisStore[T]) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			CacheErrors.WithLabelValues("clear").Inc()
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the store's counters. Size and MaxSize are 0:
// Redis manages its own memory and the store does not track entry counts.
func (s *RedisStore[T]) Stats() Stats {
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		StaleHits: s.staleHits.Load(),
	}
}

// ResetStats zeroes the hit/miss/stale counters.
func (s *RedisStore[T]) ResetStats() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.staleHits.Store(0)
}
