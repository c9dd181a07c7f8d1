package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// MemoryConfig holds the memory store configuration.
type MemoryConfig struct {
	// MaxEntries bounds the number of cached entries. Inserting past the
	// bound evicts the least recently used entry. Defaults to 1000.
	MaxEntries int

	// DefaultTTL applies when Set options leave the TTL unset.
	// Defaults to DefaultTTL.
	DefaultTTL time.Duration
}

// MemoryStore is a bounded in-process cache store with LRU eviction and a
// tag index for bulk invalidation.
//
// A single mutex guards the LRU list, the tag index and the counters, so
// every operation observes a consistent view of both structures. Expiry is
// checked lazily at read time; expired entries stay in the store (and keep
// their LRU position) until overwritten, deleted, invalidated or evicted.
type MemoryStore[T any] struct {
	mu         sync.Mutex
	lru        *simplelru.LRU[string, *Entry[T]]
	tagIndex   map[string]map[string]struct{} // tag → set of cache keys
	keyTags    map[string][]string            // key → tags
	maxEntries int
	defaultTTL time.Duration

	hits      int64
	misses    int64
	staleHits int64
	evictions int64
}

// NewMemoryStore creates a memory store. One instance is constructed per
// server process at startup and passed by reference to the handlers that
// need it.
func NewMemoryStore[T any](cfg MemoryConfig) *MemoryStore[T] {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	defaultTTL := cfg.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	s := &MemoryStore[T]{
		tagIndex:   make(map[string]map[string]struct{}),
		keyTags:    make(map[string][]string),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
	}

	// The evict callback runs while the mutex is held (every LRU call site
	// locks it), so it mutates the tag index directly.
	lru, err := simplelru.NewLRU[string, *Entry[T]](maxEntries, func(key string, _ *Entry[T]) {
		s.removeKeyTags(key)
	})
	if err != nil {
		// Only reachable with a non-positive size, which is clamped above.
		panic(err)
	}
	s.lru = lru

	return s
}

// Get retrieves a fresh entry by key. Returns ErrCacheMiss if the key is
// absent or the entry has expired; expired entries do not refresh recency.
func (s *MemoryStore[T]) Get(_ context.Context, key string) (*Entry[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lru.Peek(key)
	if !ok {
		s.misses++
		CacheMisses.WithLabelValues(storeLabelMemory).Inc()
		return nil, ErrCacheMiss
	}

	if entry.IsExpired() {
		s.misses++
		CacheMisses.WithLabelValues(storeLabelMemory).Inc()
		return nil, ErrCacheMiss
	}

	// Fresh hit: move to the most-recently-used position.
	s.lru.Get(key)
	s.hits++
	CacheHits.WithLabelValues(storeLabelMemory).Inc()

	return entry, nil
}

// GetStale retrieves an entry by key even if it has expired. An expired
// entry counts as a stale hit; callers check IsExpired to decide whether
// the content needs revalidation.
func (s *MemoryStore[T]) GetStale(_ context.Context, key string) (*Entry[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lru.Peek(key)
	if !ok {
		s.misses++
		CacheMisses.WithLabelValues(storeLabelMemory).Inc()
		return nil, ErrCacheMiss
	}

	if entry.IsExpired() {
		s.staleHits++
		CacheStaleHits.WithLabelValues(storeLabelMemory).Inc()
		return entry, nil
	}

	s.lru.Get(key)
	s.hits++
	CacheHits.WithLabelValues(storeLabelMemory).Inc()

	return entry, nil
}

// Set stores a new entry under key, computing its ETag from the payload.
// An existing entry at the same key is overwritten and its old tag
// associations dropped. Inserting past MaxEntries evicts the least recently
// used entry.
func (s *MemoryStore[T]) Set(_ context.Context, key string, data T, version string, opts Options) (*Entry[T], error) {
	entry, err := newEntry(data, version, opts, s.defaultTTL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lru.Peek(key); ok {
		// Overwrite: stale tag associations from the old entry must not linger.
		s.removeKeyTags(key)
	}

	if evicted := s.lru.Add(key, entry); evicted {
		s.evictions++
		CacheEvictions.Inc()
	}
	s.addKeyTags(key, opts.Tags)

	CacheEntries.WithLabelValues(storeLabelMemory).Set(float64(s.lru.Len()))

	return entry, nil
}

// Delete removes an entry and its tag associations. Returns whether the key
// was present.
func (s *MemoryStore[T]) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := s.lru.Remove(key)
	CacheEntries.WithLabelValues(storeLabelMemory).Set(float64(s.lru.Len()))
	return present, nil
}

// InvalidateByTag removes every entry associated with tag and returns the
// number removed. An unknown tag removes nothing and returns 0.
func (s *MemoryStore[T]) InvalidateByTag(_ context.Context, tag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.tagIndex[tag]
	if !ok {
		return 0, nil
	}

	// The evict callback mutates the tag index, so iterate over a copy.
	keys := make([]string, 0, len(members))
	for key := range members {
		keys = append(keys, key)
	}

	for _, key := range keys {
		s.lru.Remove(key)
	}

	CacheInvalidations.WithLabelValues(storeLabelMemory).Add(float64(len(keys)))
	CacheEntries.WithLabelValues(storeLabelMemory).Set(float64(s.lru.Len()))

	return len(keys), nil
}

// Clear empties the store and the tag index. Hit/miss counters are kept;
// only ResetStats zeroes them.
func (s *MemoryStore[T]) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Purge()
	s.tagIndex = make(map[string]map[string]struct{})
	s.keyTags = make(map[string][]string)
	CacheEntries.WithLabelValues(storeLabelMemory).Set(0)

	return nil
}

// Stats returns a snapshot of the store's counters.
func (s *MemoryStore[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		StaleHits: s.staleHits,
		Evictions: s.evictions,
		Size:      s.lru.Len(),
		MaxSize:   s.maxEntries,
	}
}

// ResetStats zeroes the hit/miss/stale/eviction counters without touching
// stored entries.
func (s *MemoryStore[T]) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits = 0
	s.misses = 0
	s.staleHits = 0
	s.evictions = 0
}

// addKeyTags registers key under each tag. Must be called with mu held.
func (s *MemoryStore[T]) addKeyTags(key string, tags []string) {
	if len(tags) == 0 {
		return
	}
	// Copy so a caller mutating its Options.Tags slice after Set cannot
	// desync the index.
	tags = append([]string(nil), tags...)
	s.keyTags[key] = tags
	for _, tag := range tags {
		if s.tagIndex[tag] == nil {
			s.tagIndex[tag] = make(map[string]struct{})
		}
		s.tagIndex[tag][key] = struct{}{}
	}
}

// removeKeyTags removes key from every tag set it belongs to. Must be called
// with mu held.
func (s *MemoryStore[T]) removeKeyTags(key string) {
	tags, ok := s.keyTags[key]
	if !ok {
		return
	}
	for _, tag := range tags {
		if members, ok := s.tagIndex[tag]; ok {
			delete(members, key)
			if len(members) == 0 {
				delete(s.tagIndex, tag)
			}
		}
	}
	delete(s.keyTags, key)
}
