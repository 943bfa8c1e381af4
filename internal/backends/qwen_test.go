package backends

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

func TestNewQwenRequiresKey(t *testing.T) {
	_, err := NewQwen(config.BackendConfig{BaseURL: "http://x", Model: "m"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestQwenCall(t *testing.T) {
	var got qwenChatRequest
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"model": "qwen-plus",
			"choices": []any{
				map[string]any{"message": map[string]string{"role": "assistant", "content": "Hello\n\n\n\nworld"}},
			},
			"usage": map[string]int{"total_tokens": 17},
		})
	})

	c, err := NewQwen(backendConfig(srv.URL), nil)
	require.NoError(t, err)

	res := c.Call(context.Background(), testRequest())

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Hello\n\nworld", res.Output)
	assert.Equal(t, models.BackendQwen, res.Backend)
	assert.Equal(t, "qwen-plus", res.Model)
	assert.Equal(t, 17, res.Tokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "You are concise.", got.Messages[0].Content)
}

func TestQwenCallFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		wantKind models.ErrorKind
		wantErr  string
	}{
		{
			name:     "Unauthorized",
			status:   http.StatusUnauthorized,
			body:     map[string]any{"error": map[string]string{"message": "invalid api key"}},
			wantKind: models.KindAuth,
			wantErr:  "status 401",
		},
		{
			name:     "Forbidden",
			status:   http.StatusForbidden,
			body:     map[string]any{},
			wantKind: models.KindAuth,
			wantErr:  "status 403",
		},
		{
			name:     "RateLimited",
			status:   http.StatusTooManyRequests,
			body:     map[string]any{"error": map[string]string{"message": "slow down"}},
			wantKind: models.KindProtocol,
			wantErr:  "status 429",
		},
		{
			name:     "ErrorBody",
			status:   http.StatusOK,
			body:     map[string]any{"error": map[string]string{"code": "DataInspectionFailed", "message": "blocked"}},
			wantKind: models.KindProtocol,
			wantErr:  "DataInspectionFailed",
		},
		{
			name:     "NoChoices",
			status:   http.StatusOK,
			body:     map[string]any{"choices": []any{}},
			wantKind: models.KindProtocol,
			wantErr:  "no choices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})

			c, err := NewQwen(backendConfig(srv.URL), nil)
			require.NoError(t, err)

			res := c.Call(context.Background(), testRequest())

			assert.False(t, res.Success)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Contains(t, res.Error, tt.wantErr)
			assert.Equal(t, tt.status, res.StatusCode)
		})
	}
}
