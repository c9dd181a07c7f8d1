// Package cache implements the response cache for published micro-sites.
//
// The cache stores rendered page payloads keyed by (site, page slug, variant)
// and provides the following features:
//
// - Bounded in-memory LRU store with lazy TTL expiry
// - Optional Redis-backed store for cache survival across restarts
// - Tag index for bulk invalidation (e.g. every page of one site)
// - Deterministic ETags for conditional requests (If-None-Match)
// - Stale-while-revalidate read mode (GetStale)
// - HTTP caching header generation (Cache-Control, ETag, Last-Modified, Vary)
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	store := cache.NewMemoryStore[Page](cache.MemoryConfig{
//		MaxEntries: 1000,
//		DefaultTTL: 5 * time.Minute,
//	})
//
//	key := cache.Key{SiteID: "s1", PageSlug: "home"}
//
//	entry, err := store.Get(ctx, key.String())
//	if err == cache.ErrCacheMiss {
//		// Cache miss - render the page and store it
//		entry, err = store.Set(ctx, key.String(), page, "v3", cache.Options{
//			TTL:  cache.TTL(5 * time.Minute),
//			Tags: []string{cache.SiteTag("s1")},
//		})
//	}
//
// # Conditional Requests
//
//	if cache.IsNotModified(entry, r.Header.Get("If-None-Match")) {
//		w.WriteHeader(http.StatusNotModified)
//		return
//	}
//
// # Invalidation
//
//	// Remove every cached page of one site after it is republished.
//	removed, err := cache.InvalidateSite(ctx, store, "s1")
//
// # Metrics
//
// The stores export Prometheus metrics:
//
//   - sitecache_hits_total{store} - Cache hits
//   - sitecache_misses_total{store} - Cache misses
//   - sitecache_stale_hits_total{store} - Expired entries served stale
//   - sitecache_evictions_total - LRU evictions (memory store)
//   - sitecache_invalidated_entries_total{store} - Entries removed by tag
//   - sitecache_entries{store} - Current number of cached entries
//   - sitecache_errors_total{operation} - Cache operation errors (redis store)
//
// # Consistency
//
// The memory store guards the entry map and the tag index with a single
// mutex, so Set, Delete and InvalidateByTag are atomic with respect to
// concurrent readers: the tag index never references a key that is no longer
// stored. Each process holds an independent memory cache; invalidation only
// affects the instance that received the call. Deployments that need shared
// invalidation use the Redis store instead.
package cache
