package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store backend labels.
const (
	storeLabelMemory = "memory"
	storeLabelRedis  = "redis"
)

var (
	// CacheHits tracks fresh cache hits by store backend.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitecache_hits_total",
			Help: "Total number of site cache hits",
		},
		[]string{"store"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses by store backend.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitecache_misses_total",
			Help: "Total number of site cache misses",
		},
		[]string{"store"},
	)

	// CacheStaleHits tracks expired entries intentionally served stale.
	CacheStaleHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitecache_stale_hits_total",
			Help: "Total number of expired site cache entries served stale",
		},
		[]string{"store"},
	)

	// CacheEvictions tracks LRU evictions in the memory store.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitecache_evictions_total",
			Help: "Total number of site cache entries evicted by the LRU policy",
		},
	)

	// CacheInvalidations tracks entries removed by tag invalidation.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitecache_invalidated_entries_total",
			Help: "Total number of site cache entries removed by tag invalidation",
		},
		[]string{"store"},
	)

	// CacheEntries tracks the current number of cached entries.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sitecache_entries",
			Help: "Current number of site cache entries",
		},
		[]string{"store"},
	)

	// NotModifiedResponses tracks 304 Not Modified short-circuits.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitecache_not_modified_total",
			Help: "Total number of 304 Not Modified responses served from the cache",
		},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitecache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "invalidate", "clear"
	)
)
