package backends

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// ernieServer fakes the token and chat endpoints. chat decides the chat reply
// from the token it receives.
type ernieServer struct {
	chat        func(w http.ResponseWriter, token string, body ernieChatRequest)
	tokenCalls  atomic.Int32
	chatCalls   atomic.Int32
	tokenStatus int
}

func (s *ernieServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/2.0/token":
			n := s.tokenCalls.Add(1)
			assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
			assert.Equal(t, "key", r.URL.Query().Get("client_id"))
			assert.Equal(t, "secret", r.URL.Query().Get("client_secret"))
			if s.tokenStatus != 0 {
				writeJSON(t, w, s.tokenStatus, map[string]string{
					"error": "invalid_client", "error_description": "unknown client id",
				})
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{
				"access_token": "token-" + string(rune('0'+n)),
				"expires_in":   2592000,
			})
		case "/chat/completions_pro":
			s.chatCalls.Add(1)
			var body ernieChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			s.chat(w, r.URL.Query().Get("access_token"), body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestErnie(t *testing.T, s *ernieServer) *Ernie {
	t.Helper()
	srv := newServer(t, s.handler(t))
	e, err := NewErnie(config.BackendConfig{
		BaseURL:   srv.URL + "/chat",
		TokenURL:  srv.URL + "/oauth/2.0/token",
		Model:     "ernie-4.0-8k",
		APIKey:    "key",
		SecretKey: "secret",
		Timeout:   2 * time.Second,
	}, nil)
	require.NoError(t, err)
	return e
}

func TestNewErnieRequiresKeyPair(t *testing.T) {
	_, err := NewErnie(config.BackendConfig{APIKey: "key", BaseURL: "http://x", TokenURL: "http://y", Model: "m"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestErnieCallFetchesAndCachesToken(t *testing.T) {
	s := &ernieServer{}
	s.chat = func(w http.ResponseWriter, token string, body ernieChatRequest) {
		assert.Equal(t, "token-1", token)
		assert.Equal(t, "You are concise.", body.System)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"result": "  ERNIE says hi  ",
			"usage":  map[string]int{"total_tokens": 9},
		})
	}
	e := newTestErnie(t, s)

	for i := 0; i < 3; i++ {
		res := e.Call(context.Background(), testRequest())
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "ERNIE says hi", res.Output)
		assert.Equal(t, 9, res.Tokens)
		assert.Equal(t, models.BackendErnie, res.Backend)
	}

	assert.Equal(t, int32(1), s.tokenCalls.Load())
	assert.Equal(t, int32(3), s.chatCalls.Load())
}

func TestErnieExpiredTokenIsDiscarded(t *testing.T) {
	s := &ernieServer{}
	s.chat = func(w http.ResponseWriter, token string, _ ernieChatRequest) {
		if token == "token-1" {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"error_code": 111, "error_msg": "Access token expired",
			})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"result": "fresh"})
	}
	e := newTestErnie(t, s)

	first := e.Call(context.Background(), testRequest())
	assert.False(t, first.Success)
	assert.Equal(t, models.KindTokenExpired, first.Kind)
	assert.False(t, first.Kind.Terminal())
	assert.Contains(t, first.Error, "111")
	_, cached := e.Tokens().Cached()
	assert.False(t, cached)

	second := e.Call(context.Background(), testRequest())
	require.True(t, second.Success, second.Error)
	assert.Equal(t, "fresh", second.Output)
	assert.Equal(t, int32(2), s.tokenCalls.Load())
}

func TestErnieOtherErrorKeepsToken(t *testing.T) {
	s := &ernieServer{}
	s.chat = func(w http.ResponseWriter, _ string, _ ernieChatRequest) {
		writeJSON(t, w, http.StatusOK, map[string]any{"error_code": 18, "error_msg": "QPS limit reached"})
	}
	e := newTestErnie(t, s)

	res := e.Call(context.Background(), testRequest())
	assert.False(t, res.Success)
	assert.Equal(t, models.KindProtocol, res.Kind)

	tok, cached := e.Tokens().Cached()
	assert.True(t, cached)
	assert.Equal(t, "token-1", tok.Value)
}

func TestErnieTokenRejected(t *testing.T) {
	s := &ernieServer{tokenStatus: http.StatusUnauthorized}
	s.chat = func(http.ResponseWriter, string, ernieChatRequest) {
		t.Error("chat endpoint must not be called without a token")
	}
	e := newTestErnie(t, s)

	res := e.Call(context.Background(), testRequest())

	assert.False(t, res.Success)
	assert.Equal(t, models.KindAuth, res.Kind)
	assert.True(t, res.Kind.Terminal())
	assert.Equal(t, int32(0), s.chatCalls.Load())
}

func TestErnieTokenErrorBody(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"error": "invalid_client", "error_description": "bad"})
	})
	e, err := NewErnie(config.BackendConfig{
		BaseURL: srv.URL, TokenURL: srv.URL + "/token", Model: "ernie-speed-8k",
		APIKey: "key", SecretKey: "secret",
	}, nil)
	require.NoError(t, err)

	res := e.Call(context.Background(), testRequest())

	assert.Equal(t, models.KindAuth, res.Kind)
	assert.Contains(t, res.Error, "invalid_client")
}

func TestErnieEndpointAndTemperature(t *testing.T) {
	assert.Equal(t, "completions_pro", ernieEndpoint("ERNIE-4.0-8K"))
	assert.Equal(t, "custom_model", ernieEndpoint("custom_model"))

	assert.InDelta(t, 0.01, clampErnieTemperature(0), 1e-9)
	assert.InDelta(t, 1.0, clampErnieTemperature(1.5), 1e-9)
	assert.InDelta(t, 0.7, clampErnieTemperature(0.7), 1e-9)
}
