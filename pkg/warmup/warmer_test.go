package warmup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/civiforge/sitecache/pkg/cache"
)

type testPage struct {
	Body string `json:"body"`
}

func newTestStore() *cache.MemoryStore[testPage] {
	return cache.NewMemoryStore[testPage](cache.MemoryConfig{
		MaxEntries: 100,
		DefaultTTL: 5 * time.Minute,
	})
}

func TestWarmer_WarmSite(t *testing.T) {
	store := newTestStore()

	var fetches atomic.Int64
	source := SourceFunc[testPage](func(_ context.Context, key cache.Key) (testPage, string, error) {
		fetches.Add(1)
		return testPage{Body: "<h1>" + key.PageSlug + "</h1>"}, "v1", nil
	})

	warmer := New[testPage](store, source, Config{MaxConcurrency: 4})

	slugs := []string{"home", "about", "donate", "events"}
	result, err := warmer.WarmSite(context.Background(), "s1", slugs, cache.Options{TTL: cache.TTL(time.Minute)})
	if err != nil {
		t.Fatalf("WarmSite failed: %v", err)
	}

	if result.Warmed != len(slugs) {
		t.Errorf("Warmed = %d, want %d", result.Warmed, len(slugs))
	}
	if result.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Failed)
	}
	if got := fetches.Load(); got != int64(len(slugs)) {
		t.Errorf("source fetches = %d, want %d", got, len(slugs))
	}

	for _, slug := range slugs {
		key := cache.Key{SiteID: "s1", PageSlug: slug}.String()
		entry, err := store.Get(context.Background(), key)
		if err != nil {
			t.Errorf("Get %s after warm-up failed: %v", key, err)
			continue
		}
		if entry.Version != "v1" {
			t.Errorf("Version = %v, want v1", entry.Version)
		}
	}

	// Warmed entries carry the site tag for bulk invalidation.
	removed, err := cache.InvalidateSite[testPage](context.Background(), store, "s1")
	if err != nil {
		t.Fatalf("InvalidateSite failed: %v", err)
	}
	if removed != len(slugs) {
		t.Errorf("InvalidateSite removed %d, want %d", removed, len(slugs))
	}
}

func TestWarmer_PartialFailure(t *testing.T) {
	store := newTestStore()

	source := SourceFunc[testPage](func(_ context.Context, key cache.Key) (testPage, string, error) {
		if key.PageSlug == "broken" {
			return testPage{}, "", errors.New("render failed")
		}
		return testPage{Body: key.PageSlug}, "v1", nil
	})

	warmer := New[testPage](store, source, Config{MaxConcurrency: 2})

	result, err := warmer.WarmSite(context.Background(), "s1", []string{"home", "broken", "about"}, cache.Options{})
	if err != nil {
		t.Fatalf("WarmSite failed: %v", err)
	}

	if result.Warmed != 2 {
		t.Errorf("Warmed = %d, want 2", result.Warmed)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
}

func TestWarmer_CancelledContext(t *testing.T) {
	store := newTestStore()

	source := SourceFunc[testPage](func(_ context.Context, key cache.Key) (testPage, string, error) {
		return testPage{Body: key.PageSlug}, "v1", nil
	})

	warmer := New[testPage](store, source, Config{MaxConcurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := warmer.WarmSite(ctx, "s1", []string{"home", "about"}, cache.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result.Warmed != 0 {
		t.Errorf("Warmed = %d, want 0 with cancelled context", result.Warmed)
	}
}
