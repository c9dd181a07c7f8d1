package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found or has expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultTTL is the fallback TTL when the Set options leave it unset.
const DefaultTTL = 5 * time.Minute

// TTL wraps a duration for use as an Options TTL.
func TTL(d time.Duration) *time.Duration {
	return &d
}

// Options control how Set stores an entry.
type Options struct {
	// TTL is the entry's time to live. Nil means the store default; an
	// explicit value <= 0 stores an already-expired entry, servable only
	// through GetStale.
	TTL *time.Duration

	// StaleFor is the stale-while-revalidate window advertised in the
	// generated Cache-Control header.
	StaleFor time.Duration

	// Tags register the entry in the tag index for bulk invalidation.
	Tags []string
}

// Stats is a snapshot of a store's cumulative counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	StaleHits int64 `json:"stale_hits"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`     // 0 if not tracked (redis)
	MaxSize   int   `json:"max_size"` // 0 if unbounded (redis)
}

// Store is the cache storage backend.
//
// Get fails closed on expiry: an expired entry is a miss. GetStale returns
// expired-but-present entries and counts them as stale hits, for handlers
// that serve stale content while revalidating.
type Store[T any] interface {
	Get(ctx context.Context, key string) (*Entry[T], error)
	GetStale(ctx context.Context, key string) (*Entry[T], error)
	Set(ctx context.Context, key string, data T, version string, opts Options) (*Entry[T], error)
	Delete(ctx context.Context, key string) (bool, error)
	InvalidateByTag(ctx context.Context, tag string) (int, error)
	Clear(ctx context.Context) error
	Stats() Stats
	ResetStats()
}

// InvalidateSite removes every cached page of one site. It is equivalent to
// InvalidateByTag(SiteTag(siteID)) and relies on Set being called with that
// tag for the site's pages. Returns the number of entries removed.
func InvalidateSite[T any](ctx context.Context, store Store[T], siteID string) (int, error) {
	return store.InvalidateByTag(ctx, SiteTag(siteID))
}

// WarmPage is one page of a cache warm-up batch.
type WarmPage[T any] struct {
	Key     string
	Data    T
	Version string
	Options Options
}

// Warm stores a caller-supplied list of pages, stopping early if the context
// is cancelled. Returns the number of pages stored and the first error.
func Warm[T any](ctx context.Context, store Store[T], pages []WarmPage[T]) (int, error) {
	warmed := 0
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return warmed, err
		}
		if _, err := store.Set(ctx, p.Key, p.Data, p.Version, p.Options); err != nil {
			return warmed, err
		}
		warmed++
	}
	return warmed, nil
}
