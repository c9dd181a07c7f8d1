package cache

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// X-Cache-Status values reported in generated headers.
const (
	CacheStatusHit    = "HIT"
	CacheStatusStale  = "STALE"
	CacheStatusMiss   = "MISS"
	CacheStatusBypass = "BYPASS"
)

// Profile names a fixed caching preset.
type Profile string

const (
	// ProfileStatic is for immutable assets: long TTL, immutable directive.
	ProfileStatic Profile = "static"

	// ProfilePage is for published pages: moderate TTL with a
	// stale-while-revalidate window.
	ProfilePage Profile = "page"

	// ProfileAPI is for API payloads: short TTL.
	ProfileAPI Profile = "api"

	// ProfileDynamic is for per-request content: never cached.
	ProfileDynamic Profile = "dynamic"
)

// ProfileSettings are the preset values behind a named profile.
type ProfileSettings struct {
	TTL          time.Duration
	StaleFor     time.Duration
	CacheControl string
}

var profiles = map[Profile]ProfileSettings{
	ProfileStatic: {
		TTL:          365 * 24 * time.Hour,
		CacheControl: "public, max-age=31536000, immutable",
	},
	ProfilePage: {
		TTL:          5 * time.Minute,
		StaleFor:     60 * time.Second,
		CacheControl: "public, max-age=300, stale-while-revalidate=60",
	},
	ProfileAPI: {
		TTL:          60 * time.Second,
		CacheControl: "public, max-age=60",
	},
	ProfileDynamic: {
		CacheControl: "no-store",
	},
}

// SettingsFor returns the preset values for a named profile. Unknown
// profiles fall back to ProfileDynamic (never cached).
func SettingsFor(p Profile) ProfileSettings {
	if s, ok := profiles[p]; ok {
		return s
	}
	return profiles[ProfileDynamic]
}

// CacheControlFor renders the Cache-Control directive string for a named
// profile without requiring a live cache entry.
func CacheControlFor(p Profile) string {
	return SettingsFor(p).CacheControl
}

// HeaderOptions control response header generation.
type HeaderOptions struct {
	// TTLOverride replaces the entry's remaining TTL as the max-age value.
	TTLOverride time.Duration

	// StaleWhileRevalidate overrides the entry's StaleFor window.
	StaleWhileRevalidate time.Duration

	// Vary lists the request dimensions the cached response varies on
	// (e.g. "Accept-Encoding").
	Vary []string

	// Bypass marks the response as a deliberate cache bypass rather than a
	// miss when no entry is present.
	Bypass bool
}

// ResponseHeaders derives the HTTP caching headers for a cache entry.
//
// With no entry the headers disable caching and report MISS (or BYPASS).
// A fresh entry yields max-age from the remaining TTL (or the override), the
// quoted ETag, Last-Modified from CreatedAt, and the configured Vary
// dimensions. An expired entry served stale yields max-age=0 and the STALE
// status so downstream caches revalidate.
func ResponseHeaders[T any](entry *Entry[T], opts HeaderOptions) http.Header {
	h := http.Header{}

	if entry == nil {
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
		if opts.Bypass {
			h.Set("X-Cache-Status", CacheStatusBypass)
		} else {
			h.Set("X-Cache-Status", CacheStatusMiss)
		}
		return h
	}

	maxAge := entry.TTL()
	if opts.TTLOverride > 0 {
		maxAge = opts.TTLOverride
	}

	staleFor := entry.StaleFor
	if opts.StaleWhileRevalidate > 0 {
		staleFor = opts.StaleWhileRevalidate
	}

	cc := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	if staleFor > 0 {
		cc += fmt.Sprintf(", stale-while-revalidate=%d", int(staleFor.Seconds()))
	}
	h.Set("Cache-Control", cc)

	if entry.ETag != "" {
		h.Set("ETag", `"`+entry.ETag+`"`)
	}
	h.Set("Last-Modified", entry.CreatedAt.UTC().Format(http.TimeFormat))

	if len(opts.Vary) > 0 {
		h.Set("Vary", strings.Join(opts.Vary, ", "))
	}

	if entry.IsExpired() {
		h.Set("X-Cache-Status", CacheStatusStale)
	} else {
		h.Set("X-Cache-Status", CacheStatusHit)
	}

	return h
}

// IsNotModified reports whether the handler can short-circuit with a
// 304 Not Modified: the entry is present, unexpired, and the request's
// If-None-Match validator matches its ETag.
func IsNotModified[T any](entry *Entry[T], requestETag string) bool {
	if entry == nil || entry.IsExpired() {
		return false
	}
	etag := normalizeETag(requestETag)
	return etag != "" && etag == entry.ETag
}

// normalizeETag strips the weak-validator prefix and surrounding quotes from
// a request ETag per HTTP semantics.
func normalizeETag(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")
	return strings.Trim(etag, `"`)
}
