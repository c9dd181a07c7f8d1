// Package warmup pre-populates the site cache by fetching pages from a
// content source in parallel.
//
// The warmer:
//   - Distributes the requested pages across a bounded worker pool
//   - Applies a per-fetch timeout
//   - Stores each fetched page with the site's invalidation tag
//   - Tolerates per-page failures (logs and continues)
//   - Stops early when the context is cancelled
//
// Example usage:
//
//	warmer := warmup.New[origin.Page](store, source, warmup.DefaultConfig())
//	result, err := warmer.WarmSite(ctx, "s1", []string{"home", "about"}, cache.Options{})
package warmup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/civiforge/sitecache/pkg/cache"
	"github.com/civiforge/sitecache/pkg/logging"
)

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel fetches.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultConfig returns safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 8,
		Timeout:        10 * time.Second,
	}
}

// Source fetches the content for one page key.
type Source[T any] interface {
	Fetch(ctx context.Context, key cache.Key) (data T, version string, err error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[T any] func(ctx context.Context, key cache.Key) (T, string, error)

// Fetch implements Source.
func (f SourceFunc[T]) Fetch(ctx context.Context, key cache.Key) (T, string, error) {
	return f(ctx, key)
}

// Result summarizes a warm-up run.
type Result struct {
	Warmed int
	Failed int
}

// Warmer pre-populates a cache store from a content source.
type Warmer[T any] struct {
	store  cache.Store[T]
	source Source[T]
	config Config
	logger zerolog.Logger
}

// New creates a warmer for the given store and source.
func New[T any](store cache.Store[T], source Source[T], cfg Config) *Warmer[T] {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Warmer[T]{
		store:  store,
		source: source,
		config: cfg,
		logger: logging.NewLogger("cache-warmer"),
	}
}

// WarmSite fetches and caches the given slugs of one site. Every stored
// entry carries the site's invalidation tag in addition to the tags in opts.
// Per-page failures are logged and counted; the returned error is non-nil
// only when the context is cancelled.
func (w *Warmer[T]) WarmSite(ctx context.Context, siteID string, slugs []string, opts cache.Options) (Result, error) {
	start := time.Now()

	keys := make(chan cache.Key, len(slugs))
	for _, slug := range slugs {
		keys <- cache.Key{SiteID: siteID, PageSlug: slug}
	}
	close(keys)

	opts.Tags = append([]string{cache.SiteTag(siteID)}, opts.Tags...)

	var warmed, failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < w.config.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.worker(ctx, keys, opts, &warmed, &failed)
		}()
	}
	wg.Wait()

	result := Result{
		Warmed: int(warmed.Load()),
		Failed: int(failed.Load()),
	}

	w.logger.Info().
		Str("site_id", siteID).
		Int("warmed", result.Warmed).
		Int("failed", result.Failed).
		Int("requested", len(slugs)).
		Dur("duration", time.Since(start)).
		Msg("Cache warm-up complete")

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// worker drains the key queue, fetching and storing one page at a time.
func (w *Warmer[T]) worker(ctx context.Context, keys <-chan cache.Key, opts cache.Options, warmed, failed *atomic.Int64) {
	for key := range keys {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fetchCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		data, version, err := w.source.Fetch(fetchCtx, key)
		cancel()

		if err != nil {
			failed.Add(1)
			w.logger.Warn().
				Err(err).
				Str("site_id", key.SiteID).
				Str("slug", key.PageSlug).
				Msg("Page warm-up fetch failed")
			continue
		}

		if _, err := w.store.Set(ctx, key.String(), data, version, opts); err != nil {
			failed.Add(1)
			w.logger.Warn().
				Err(err).
				Str("site_id", key.SiteID).
				Str("slug", key.PageSlug).
				Msg("Page warm-up store failed")
			continue
		}

		warmed.Add(1)
	}
}
