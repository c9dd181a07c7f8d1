// Command sitecache-server serves published site pages through the response
// cache. It fetches pages from the publishing origin on cache misses, answers
// conditional requests with 304 Not Modified, falls back to stale content
// when the origin is unavailable, and exposes admin endpoints for stats and
// invalidation.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/civiforge/sitecache/pkg/cache"
	"github.com/civiforge/sitecache/pkg/logging"
	"github.com/civiforge/sitecache/pkg/origin"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "false") == "true",
	})
	logger := logging.NewLogger("sitecache-server")

	port := getEnv("PORT", "8080")
	originURL := getEnv("ORIGIN_URL", "http://localhost:9000")
	redisURL := getEnv("REDIS_URL", "")
	maxEntries := getEnvInt("CACHE_MAX_ENTRIES", 1000, logger)
	defaultTTL := getEnvDuration("CACHE_DEFAULT_TTL", 5*time.Minute, logger)

	store, err := newStore(redisURL, maxEntries, defaultTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create cache store")
	}

	originClient, err := origin.New(origin.DefaultConfig(originURL))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create origin client")
	}

	srv := &server{
		store:  store,
		origin: originClient,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sites/", srv.pageHandler)
	mux.HandleFunc("/admin/cache/stats", srv.statsHandler)
	mux.HandleFunc("/admin/cache/invalidate", srv.invalidateHandler)
	mux.HandleFunc("/admin/cache/clear", srv.clearHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler)

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("origin_url", originURL).
		Bool("redis", redisURL != "").
		Msg("Starting sitecache server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// newStore selects the cache backend: Redis when REDIS_URL is set, otherwise
// the in-process LRU store.
func newStore(redisURL string, maxEntries int, defaultTTL time.Duration, logger zerolog.Logger) (cache.Store[origin.Page], error) {
	if redisURL == "" {
		logger.Info().
			Int("max_entries", maxEntries).
			Dur("default_ttl", defaultTTL).
			Msg("Using in-memory cache store")
		return cache.NewMemoryStore[origin.Page](cache.MemoryConfig{
			MaxEntries: maxEntries,
			DefaultTTL: defaultTTL,
		}), nil
	}

	client := redis.NewClient(&redis.Options{Addr: redisURL})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", redisURL, err)
	}

	logger.Info().Str("redis_url", redisURL).Msg("Using Redis cache store")
	return cache.NewRedisStore[origin.Page](client, cache.RedisConfig{
		DefaultTTL: defaultTTL,
	}), nil
}

type server struct {
	store  cache.Store[origin.Page]
	origin *origin.Client
	logger zerolog.Logger
}

// pageHandler serves GET /sites/{siteID}/pages/{slug}[?variant=...].
func (s *server) pageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key, ok := parsePageKey(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	entry, err := s.store.Get(ctx, key.String())
	if err == nil {
		s.servePage(w, r, entry, cache.CacheStatusHit)
		return
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Error().Err(err).Str("cache_key", key.String()).Msg("Cache read failed")
		http.Error(w, "cache read failed", http.StatusInternalServerError)
		return
	}

	page, version, err := s.origin.FetchPage(ctx, key)
	if err != nil {
		s.serveFallback(w, r, key, err)
		return
	}

	settings := cache.SettingsFor(cache.ProfilePage)
	entry, err = s.store.Set(ctx, key.String(), *page, version, cache.Options{
		TTL:      cache.TTL(settings.TTL),
		StaleFor: settings.StaleFor,
		Tags:     []string{cache.SiteTag(key.SiteID)},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("cache_key", key.String()).Msg("Cache write failed")
		// Serve the fetched page anyway.
		w.Header().Set("Content-Type", page.ContentType)
		w.Header().Set("X-Cache-Status", cache.CacheStatusMiss)
		w.Write(page.Body)
		return
	}

	s.servePage(w, r, entry, cache.CacheStatusMiss)
}

// serveFallback handles an origin failure on a cache miss: an expired entry
// is served stale if one is still around, otherwise the failure surfaces.
func (s *server) serveFallback(w http.ResponseWriter, r *http.Request, key cache.Key, originErr error) {
	ctx := r.Context()

	if errors.Is(originErr, origin.ErrPageNotFound) {
		http.NotFound(w, r)
		return
	}

	stale, err := s.store.GetStale(ctx, key.String())
	if err == nil {
		s.logger.Warn().
			Err(originErr).
			Str("cache_key", key.String()).
			Msg("Origin unavailable, serving stale content")
		s.servePage(w, r, stale, cache.CacheStatusStale)
		return
	}

	s.logger.Error().Err(originErr).Str("cache_key", key.String()).Msg("Origin fetch failed")
	http.Error(w, "origin unavailable", http.StatusBadGateway)
}

// servePage writes a cached page with its caching headers. Conditional
// requests matching the entry's ETag short-circuit with 304 Not Modified.
func (s *server) servePage(w http.ResponseWriter, r *http.Request, entry *cache.Entry[origin.Page], status string) {
	headers := cache.ResponseHeaders(entry, cache.HeaderOptions{Vary: []string{"Accept-Encoding"}})
	headers.Set("X-Cache-Status", status)
	for k, vv := range headers {
		for _, v := range vv {
			w.Header().Set(k, v)
		}
	}

	if cache.IsNotModified(entry, r.Header.Get("If-None-Match")) {
		cache.NotModifiedResponses.Inc()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", entry.Data.ContentType)
	w.Write(entry.Data.Body)
}

// statsHandler serves GET /admin/cache/stats.
func (s *server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Stats())
}

type invalidateRequest struct {
	SiteID string `json:"site_id"`
	Tag    string `json:"tag"`
}

type invalidateResponse struct {
	Removed int `json:"removed"`
}

// invalidateHandler serves POST /admin/cache/invalidate. The body names
// either a site_id (invalidates every page of the site) or a raw tag.
func (s *server) invalidateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tag := req.Tag
	if req.SiteID != "" {
		tag = cache.SiteTag(req.SiteID)
	}
	if tag == "" {
		http.Error(w, "site_id or tag is required", http.StatusBadRequest)
		return
	}

	removed, err := s.store.InvalidateByTag(r.Context(), tag)
	if err != nil {
		s.logger.Error().Err(err).Str("tag", tag).Msg("Invalidation failed")
		http.Error(w, "invalidation failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info().Str("tag", tag).Int("removed", removed).Msg("Cache invalidated")
	writeJSON(w, http.StatusOK, invalidateResponse{Removed: removed})
}

// clearHandler serves POST /admin/cache/clear.
func (s *server) clearHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.store.Clear(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Cache clear failed")
		http.Error(w, "clear failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info().Msg("Cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// parsePageKey extracts the cache key from /sites/{siteID}/pages/{slug}.
// Slugs may span several path segments ("about/team").
func parsePageKey(r *http.Request) (cache.Key, bool) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "sites" || parts[2] != "pages" || parts[1] == "" || parts[3] == "" {
		return cache.Key{}, false
	}
	return cache.Key{
		SiteID:   parts[1],
		PageSlug: strings.Join(parts[3:], "/"),
		Variant:  r.URL.Query().Get("variant"),
	}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, logger zerolog.Logger) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", raw).Msg("Invalid integer env value, using default")
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration, logger zerolog.Logger) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", raw).Msg("Invalid duration env value, using default")
		return defaultValue
	}
	return v
}
