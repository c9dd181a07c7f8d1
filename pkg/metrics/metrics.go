// Package metrics provides the centralized Prometheus metrics registry for
// the site cache. All metrics are defined in their respective packages
// (cache, origin) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the site cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - sitecache_hits_total{store} (Counter): Cache hits by store ("memory", "redis")
//   - sitecache_misses_total{store} (Counter): Cache misses by store
//   - sitecache_stale_hits_total{store} (Counter): Expired entries served stale
//   - sitecache_evictions_total (Counter): Entries evicted by the LRU policy
//   - sitecache_invalidated_entries_total{store} (Counter): Entries removed by tag invalidation
//   - sitecache_entries{store} (Gauge): Current number of cached entries
//   - sitecache_not_modified_total (Counter): 304 Not Modified responses served
//   - sitecache_errors_total{operation} (Counter): Cache operation errors
//
// Origin Metrics (pkg/origin):
//   - origin_requests_total{status} (Counter): Origin fetches by HTTP status
//   - origin_request_duration_seconds (Histogram): Origin fetch duration
//   - origin_retries_total{error_class} (Counter): Retry attempts by error class
//   - origin_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - origin_retry_exhausted_total{error_class} (Counter): Fetches that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(sitecache_hits_total[5m])) /
//   (sum(rate(sitecache_hits_total[5m])) + sum(rate(sitecache_misses_total[5m])))
//
//   # Stale Serve Rate
//   rate(sitecache_stale_hits_total[5m])
//
//   # 304 Response Rate
//   rate(sitecache_not_modified_total[5m])
//
//   # P95 Origin Latency
//   histogram_quantile(0.95, rate(origin_request_duration_seconds_bucket[5m]))
//
//   # Invalidation Volume
//   sum by (store) (rate(sitecache_invalidated_entries_total[10m]))
