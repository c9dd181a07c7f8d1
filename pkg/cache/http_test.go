package cache

import (
	"strings"
	"testing"
	"time"
)

func freshEntry(etag string, ttl time.Duration) *Entry[string] {
	now := time.Now()
	return &Entry[string]{
		Data:      "content",
		Version:   "v1",
		ETag:      etag,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestIsNotModified(t *testing.T) {
	entry := freshEntry("abc", time.Minute)
	expired := freshEntry("abc", -time.Minute)

	tests := []struct {
		name        string
		entry       *Entry[string]
		requestETag string
		want        bool
	}{
		{name: "matching quoted etag", entry: entry, requestETag: `"abc"`, want: true},
		{name: "matching unquoted etag", entry: entry, requestETag: "abc", want: true},
		{name: "matching weak validator", entry: entry, requestETag: `W/"abc"`, want: true},
		{name: "non-matching etag", entry: entry, requestETag: `"xyz"`, want: false},
		{name: "empty request etag", entry: entry, requestETag: "", want: false},
		{name: "nil entry", entry: nil, requestETag: `"abc"`, want: false},
		{name: "expired entry", entry: expired, requestETag: `"abc"`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotModified(tt.entry, tt.requestETag); got != tt.want {
				t.Errorf("IsNotModified() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResponseHeaders_NilEntry(t *testing.T) {
	h := ResponseHeaders[string](nil, HeaderOptions{})
	if got := h.Get("X-Cache-Status"); got != CacheStatusMiss {
		t.Errorf("X-Cache-Status = %v, want %v", got, CacheStatusMiss)
	}
	if cc := h.Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Errorf("Cache-Control = %v, want a no-store directive", cc)
	}

	h = ResponseHeaders[string](nil, HeaderOptions{Bypass: true})
	if got := h.Get("X-Cache-Status"); got != CacheStatusBypass {
		t.Errorf("X-Cache-Status = %v, want %v", got, CacheStatusBypass)
	}
}

func TestResponseHeaders_FreshEntry(t *testing.T) {
	entry := freshEntry("abc", 5*time.Minute)
	h := ResponseHeaders(entry, HeaderOptions{Vary: []string{"Accept-Encoding"}})

	if got := h.Get("X-Cache-Status"); got != CacheStatusHit {
		t.Errorf("X-Cache-Status = %v, want %v", got, CacheStatusHit)
	}
	if got := h.Get("ETag"); got != `"abc"` {
		t.Errorf("ETag = %v, want quoted abc", got)
	}
	if got := h.Get("Vary"); got != "Accept-Encoding" {
		t.Errorf("Vary = %v, want Accept-Encoding", got)
	}
	if got := h.Get("Last-Modified"); got == "" {
		t.Error("Last-Modified missing")
	} else if _, err := time.Parse("Mon, 02 Jan 2006 15:04:05 GMT", got); err != nil {
		t.Errorf("Last-Modified %q is not an HTTP-date: %v", got, err)
	}

	cc := h.Get("Cache-Control")
	if !strings.HasPrefix(cc, "public, max-age=") {
		t.Errorf("Cache-Control = %v, want public max-age directive", cc)
	}
	if !strings.Contains(cc, "max-age=29") && !strings.Contains(cc, "max-age=30") {
		t.Errorf("Cache-Control = %v, want max-age near 300", cc)
	}
}

func TestResponseHeaders_StaleWhileRevalidate(t *testing.T) {
	entry := freshEntry("abc", 5*time.Minute)
	entry.StaleFor = 60 * time.Second

	h := ResponseHeaders(entry, HeaderOptions{})
	if cc := h.Get("Cache-Control"); !strings.Contains(cc, "stale-while-revalidate=60") {
		t.Errorf("Cache-Control = %v, want stale-while-revalidate=60", cc)
	}

	// Explicit option overrides the entry's window.
	h = ResponseHeaders(entry, HeaderOptions{StaleWhileRevalidate: 30 * time.Second})
	if cc := h.Get("Cache-Control"); !strings.Contains(cc, "stale-while-revalidate=30") {
		t.Errorf("Cache-Control = %v, want stale-while-revalidate=30", cc)
	}
}

func TestResponseHeaders_StaleEntry(t *testing.T) {
	entry := freshEntry("abc", -time.Minute)
	h := ResponseHeaders(entry, HeaderOptions{})

	if got := h.Get("X-Cache-Status"); got != CacheStatusStale {
		t.Errorf("X-Cache-Status = %v, want %v", got, CacheStatusStale)
	}
	if cc := h.Get("Cache-Control"); !strings.Contains(cc, "max-age=0") {
		t.Errorf("Cache-Control = %v, want max-age=0 for stale entry", cc)
	}
}

func TestResponseHeaders_TTLOverride(t *testing.T) {
	entry := freshEntry("abc", 5*time.Minute)
	h := ResponseHeaders(entry, HeaderOptions{TTLOverride: 30 * time.Second})

	if cc := h.Get("Cache-Control"); !strings.Contains(cc, "max-age=30") {
		t.Errorf("Cache-Control = %v, want max-age=30", cc)
	}
}

func TestCacheControlFor(t *testing.T) {
	tests := []struct {
		profile Profile
		want    string
	}{
		{ProfileStatic, "public, max-age=31536000, immutable"},
		{ProfilePage, "public, max-age=300, stale-while-revalidate=60"},
		{ProfileAPI, "public, max-age=60"},
		{ProfileDynamic, "no-store"},
		{Profile("unknown"), "no-store"},
	}

	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			if got := CacheControlFor(tt.profile); got != tt.want {
				t.Errorf("CacheControlFor(%s) = %v, want %v", tt.profile, got, tt.want)
			}
		})
	}
}
