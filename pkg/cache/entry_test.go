package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "expired entry",
			expiresAt: time.Now().Add(-1 * time.Hour),
			want:      true,
		},
		{
			name:      "valid entry",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry[string]{ExpiresAt: tt.expiresAt}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		wantMin   time.Duration
		wantMax   time.Duration
	}{
		{
			name:      "one hour remaining",
			expiresAt: time.Now().Add(1 * time.Hour),
			wantMin:   59 * time.Minute,
			wantMax:   61 * time.Minute,
		},
		{
			name:      "already expired",
			expiresAt: time.Now().Add(-1 * time.Hour),
			wantMin:   0,
			wantMax:   0,
		},
		{
			name:      "5 minutes remaining",
			expiresAt: time.Now().Add(5 * time.Minute),
			wantMin:   4*time.Minute + 59*time.Second,
			wantMax:   5*time.Minute + 1*time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry[string]{ExpiresAt: tt.expiresAt}
			got := entry.TTL()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TTL() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

// TestETagFor_Determinism ensures structurally equal values yield the same
// ETag regardless of object identity.
func TestETagFor_Determinism(t *testing.T) {
	type page struct {
		Title string            `json:"title"`
		Body  string            `json:"body"`
		Meta  map[string]string `json:"meta"`
	}

	a := page{Title: "Home", Body: "<h1>Hi</h1>", Meta: map[string]string{"x": "1", "y": "2"}}
	b := page{Title: "Home", Body: "<h1>Hi</h1>", Meta: map[string]string{"y": "2", "x": "1"}}

	etagA, err := ETagFor(a)
	if err != nil {
		t.Fatalf("ETagFor failed: %v", err)
	}
	etagB, err := ETagFor(b)
	if err != nil {
		t.Fatalf("ETagFor failed: %v", err)
	}

	if etagA != etagB {
		t.Errorf("structurally equal content produced different etags: %s vs %s", etagA, etagB)
	}

	for i := 0; i < 5; i++ {
		etag, err := ETagFor(a)
		if err != nil {
			t.Fatalf("ETagFor failed: %v", err)
		}
		if etag != etagA {
			t.Errorf("iteration %d: etag changed: %s vs %s", i, etag, etagA)
		}
	}
}

func TestETagFor_DifferentContent(t *testing.T) {
	etagA, err := ETagFor(map[string]string{"title": "Home"})
	if err != nil {
		t.Fatalf("ETagFor failed: %v", err)
	}
	etagB, err := ETagFor(map[string]string{"title": "About"})
	if err != nil {
		t.Fatalf("ETagFor failed: %v", err)
	}

	if etagA == etagB {
		t.Error("different content produced identical etags")
	}
}

func TestNewEntry_TTLHandling(t *testing.T) {
	tests := []struct {
		name        string
		ttl         *time.Duration
		wantExpired bool
	}{
		{name: "explicit ttl", ttl: TTL(time.Hour), wantExpired: false},
		{name: "unset ttl uses default", ttl: nil, wantExpired: false},
		{name: "zero ttl stored already expired", ttl: TTL(0), wantExpired: true},
		{name: "negative ttl stored already expired", ttl: TTL(-1 * time.Second), wantExpired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := newEntry("content", "v1", Options{TTL: tt.ttl}, DefaultTTL)
			if err != nil {
				t.Fatalf("newEntry failed: %v", err)
			}
			if entry.ExpiresAt.Before(entry.CreatedAt) {
				t.Errorf("ExpiresAt %v before CreatedAt %v", entry.ExpiresAt, entry.CreatedAt)
			}
			if got := entry.IsExpired(); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if entry.ETag == "" {
				t.Error("entry has empty etag")
			}
		})
	}
}
