package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// RelayCache provides idempotency for relay submissions by caching terminal
// outcomes and tracking in-flight requests. The on-chain nonce already
// blocks a second successful relay of the same payload; the cache exists so
// a client retrying after a timeout gets the original outcome instead of a
// confusing nonce-mismatch error, and so two concurrent submissions of the
// same payload produce one transaction. A confirmation timeout is a terminal
// outcome here: the transaction was submitted and the cached response
// carries its hash.
type RelayCache struct {
	mu       sync.Mutex
	results  map[string]*cachedOutcome
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
}

type cachedOutcome struct {
	response *RelayResponse
	rerr     *RelayError
}

// NewRelayCache creates a relay cache with the specified TTL.
func NewRelayCache(ttl time.Duration) *RelayCache {
	return &RelayCache{
		results:  make(map[string]*cachedOutcome),
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
	}
}

// RequestKey derives the cache key from the full signed payload. The
// signature and nonce are part of the hash, so distinct attempts never
// collide.
func RequestKey(r *RelayRequest) string {
	hash := sha256.Sum256(r.CanonicalBytes())
	return hex.EncodeToString(hash[:])
}

// CacheStatus represents the result of checking the cache.
type CacheStatus int

const (
	// StatusNotFound means no cached result and no in-flight request.
	StatusNotFound CacheStatus = iota
	// StatusCached means a cached result was found.
	StatusCached
	// StatusInFlight means another request is currently relaying this payload.
	StatusInFlight
)

// CheckAndMark atomically checks the cache and marks the key as in-flight
// if this caller should proceed. On StatusCached the stored response and
// terminal error are returned together.
func (c *RelayCache) CheckAndMark(key string) (CacheStatus, *RelayResponse, *RelayError, chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, exists := c.expiry[key]; exists {
		if time.Now().Before(expiry) {
			if outcome, ok := c.results[key]; ok {
				return StatusCached, outcome.response, outcome.rerr, nil
			}
		}
		delete(c.results, key)
		delete(c.expiry, key)
	}

	if done, exists := c.inFlight[key]; exists {
		return StatusInFlight, nil, nil, done
	}

	done := make(chan struct{})
	c.inFlight[key] = done
	return StatusNotFound, nil, nil, done
}

// WaitForResult waits for an in-flight relay to complete, respecting
// context cancellation. Returns nil, nil if the in-flight attempt failed
// without caching, in which case the caller may retry.
func (c *RelayCache) WaitForResult(ctx context.Context, key string, done chan struct{}) (*RelayResponse, *RelayError, error) {
	select {
	case <-done:
		response, rerr := c.Get(key)
		return response, rerr, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Get retrieves a cached outcome if it exists and hasn't expired.
func (c *RelayCache) Get(key string) (*RelayResponse, *RelayError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, exists := c.expiry[key]
	if !exists {
		return nil, nil
	}

	if time.Now().After(expiry) {
		delete(c.results, key)
		delete(c.expiry, key)
		return nil, nil
	}

	outcome, ok := c.results[key]
	if !ok {
		return nil, nil
	}
	return outcome.response, outcome.rerr
}

// Complete caches the terminal outcome and signals any waiters. rerr may be
// non-nil when the outcome is a post-submission condition such as a
// confirmation timeout; it is replayed together with the response.
func (c *RelayCache) Complete(key string, response *RelayResponse, rerr *RelayError, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[key] = &cachedOutcome{response: response, rerr: rerr}
	c.expiry[key] = time.Now().Add(c.ttl)
	delete(c.inFlight, key)
	close(done)

	c.cleanupExpiredLocked()
}

// Fail removes the in-flight marker without caching a result, so the relay
// can be retried.
func (c *RelayCache) Fail(key string, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inFlight, key)
	close(done)
}

func (c *RelayCache) cleanupExpiredLocked() {
	now := time.Now()
	for key, expiry := range c.expiry {
		if now.After(expiry) {
			delete(c.results, key)
			delete(c.expiry, key)
		}
	}
}
