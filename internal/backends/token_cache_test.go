package backends

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token Token
		want  bool
	}{
		{"Empty", Token{}, false},
		{"NoExpiry", Token{Value: "t"}, true},
		{"FarFuture", Token{Value: "t", ExpiresAt: now.Add(time.Hour)}, true},
		{"InsideMargin", Token{Value: "t", ExpiresAt: now.Add(time.Minute)}, false},
		{"Expired", Token{Value: "t", ExpiresAt: now.Add(-time.Minute)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Valid(now))
		})
	}
}

func TestTokenCacheFetchOnce(t *testing.T) {
	var fetches atomic.Int32
	c := NewTokenCache(func(context.Context) (Token, error) {
		fetches.Add(1)
		return Token{Value: "abc", ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	for i := 0; i < 5; i++ {
		tok, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "abc", tok)
	}
	assert.Equal(t, int32(1), fetches.Load())
}

func TestTokenCacheInvalidate(t *testing.T) {
	var fetches atomic.Int32
	c := NewTokenCache(func(context.Context) (Token, error) {
		n := fetches.Add(1)
		return Token{Value: string(rune('a' + n - 1))}, nil
	})

	first, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", first)

	c.Invalidate()
	_, cached := c.Cached()
	assert.False(t, cached)

	second, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", second)
}

func TestTokenCacheRefetchesExpired(t *testing.T) {
	var fetches atomic.Int32
	c := NewTokenCache(func(context.Context) (Token, error) {
		fetches.Add(1)
		return Token{Value: "t", ExpiresAt: time.Now().Add(2 * time.Hour)}, nil
	})

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestTokenCacheFetchError(t *testing.T) {
	boom := errors.New("boom")
	c := NewTokenCache(func(context.Context) (Token, error) { return Token{}, boom })

	_, err := c.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	_, cached := c.Cached()
	assert.False(t, cached)
}

func TestTokenCacheEmptyToken(t *testing.T) {
	c := NewTokenCache(func(context.Context) (Token, error) { return Token{}, nil })

	_, err := c.Get(context.Background())
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestTokenCacheConcurrentGetSharesFetch(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})
	c := NewTokenCache(func(context.Context) (Token, error) {
		fetches.Add(1)
		<-release
		return Token{Value: "shared"}, nil
	})

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := c.Get(context.Background())
			assert.NoError(t, err)
			results[i] = tok
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
	assert.LessOrEqual(t, fetches.Load(), int32(2))
}
