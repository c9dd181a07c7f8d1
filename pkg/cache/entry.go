package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is a cached page response.
type Entry[T any] struct {
	// Data is the cached payload.
	Data T `json:"data" msgpack:"data"`

	// Version is the caller-supplied content version (e.g. "v3"). It is
	// orthogonal to the ETag and distinguishes separately cached revisions.
	Version string `json:"version" msgpack:"version"`

	// ETag is the content fingerprint used for conditional requests
	// (If-None-Match). Stored unquoted; quoted at header-generation time.
	ETag string `json:"etag" msgpack:"etag"`

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`

	// ExpiresAt is the absolute expiry time (CreatedAt + TTL).
	// Always >= CreatedAt.
	ExpiresAt time.Time `json:"expires_at" msgpack:"expires_at"`

	// StaleFor is the stale-while-revalidate window carried from the Set
	// options. Header generation only; expired entries are served stale
	// exclusively through GetStale.
	StaleFor time.Duration `json:"stale_for,omitempty" msgpack:"stale_for"`
}

// IsExpired returns true if the entry's TTL has elapsed. An entry is expired
// from ExpiresAt onward, so a zero TTL is expired at the instant it is stored.
func (e *Entry[T]) IsExpired() bool {
	return !time.Now().Before(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry[T]) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns the time elapsed since the entry was stored.
func (e *Entry[T]) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// ETagFor computes a deterministic content fingerprint: the SHA-256 hex
// digest of the JSON serialization of content. encoding/json sorts map keys,
// so structurally equal values always produce the same ETag.
func ETagFor(content any) (string, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("marshal content for etag: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// newEntry builds an Entry from a payload and Set options. An unset TTL falls
// back to defaultTTL; an explicit TTL <= 0 stores an already-expired entry so
// any subsequent strict Get sees it as a miss.
func newEntry[T any](data T, version string, opts Options, defaultTTL time.Duration) (*Entry[T], error) {
	etag, err := ETagFor(data)
	if err != nil {
		return nil, err
	}

	ttl := defaultTTL
	if opts.TTL != nil {
		ttl = *opts.TTL
	}
	if ttl < 0 {
		ttl = 0
	}

	now := time.Now()
	return &Entry[T]{
		Data:      data,
		Version:   version,
		ETag:      etag,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		StaleFor:  opts.StaleFor,
	}, nil
}
