package backends

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// tokenExpiryMargin is subtracted from a token's lifetime before reuse.
const tokenExpiryMargin = 5 * time.Minute

// Token is an access token with its expiry. A zero ExpiresAt never expires.
type Token struct {
	ExpiresAt time.Time
	Value     string
}

// Valid reports whether the token can still be used at now.
func (t Token) Valid(now time.Time) bool {
	if t.Value == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(tokenExpiryMargin).Before(t.ExpiresAt)
}

// FetchTokenFunc obtains a fresh access token.
type FetchTokenFunc func(ctx context.Context) (Token, error)

// TokenCache holds one access token, fetching it on first use and again
// after Invalidate. Concurrent callers share a single in-flight fetch.
type TokenCache struct {
	fetch FetchTokenFunc
	now   func() time.Time
	group singleflight.Group
	token Token
	mu    sync.Mutex
}

// NewTokenCache creates an empty cache backed by fetch.
func NewTokenCache(fetch FetchTokenFunc) *TokenCache {
	return &TokenCache{fetch: fetch, now: time.Now}
}

// Get returns the cached token or fetches a new one.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()
	if tok.Valid(c.now()) {
		return tok.Value, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		fresh, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if fresh.Value == "" {
			return nil, fmt.Errorf("%w: empty token returned", ErrTokenUnavailable)
		}
		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		return fresh.Value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate discards the cached token so the next Get fetches again.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = Token{}
	c.mu.Unlock()
}

// Cached returns the current token without fetching.
func (c *TokenCache) Cached() (Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.token.Value != ""
}
