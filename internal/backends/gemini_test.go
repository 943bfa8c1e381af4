package backends

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

func fakeGemini(fn geminiGenerateFunc) *Gemini {
	return &Gemini{model: "gemini-1.5-flash", timeout: time.Second, generate: fn}
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
		UsageMetadata: &genai.UsageMetadata{
			TotalTokenCount: 12,
		},
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), config.BackendConfig{Model: "gemini-1.5-flash"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeminiCall(t *testing.T) {
	var seen models.Request
	g := fakeGemini(func(ctx context.Context, req models.Request) (*genai.GenerateContentResponse, error) {
		seen = req
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return textResponse(genai.Text("<think>plan</think>Part one, "), genai.Text("part two.")), nil
	})

	res := g.Call(context.Background(), testRequest())

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Part one, part two.", res.Output)
	assert.Equal(t, models.BackendGemini, res.Backend)
	assert.Equal(t, "gemini-1.5-flash", res.Model)
	assert.Equal(t, 12, res.Tokens)
	assert.Equal(t, "You are concise.", seen.SystemPrompt)
}

func TestGeminiCallFailures(t *testing.T) {
	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		err      error
		wantKind models.ErrorKind
		wantErr  string
	}{
		{
			name:     "Unauthorized",
			err:      &googleapi.Error{Code: 403, Message: "API key not valid"},
			wantKind: models.KindAuth,
			wantErr:  "gemini request failed",
		},
		{
			name:     "ServerError",
			err:      &googleapi.Error{Code: 503, Message: "overloaded"},
			wantKind: models.KindProtocol,
		},
		{
			name:     "InvalidKeyMessage",
			err:      errors.New("rpc error: code = InvalidArgument desc = API key not valid. Please pass a valid API key."),
			wantKind: models.KindAuth,
		},
		{
			name:     "Blocked",
			err:      &genai.BlockedError{},
			wantKind: models.KindProtocol,
		},
		{
			name:     "Timeout",
			err:      context.DeadlineExceeded,
			wantKind: models.KindTransport,
		},
		{
			name:     "Canceled",
			err:      context.Canceled,
			wantKind: models.KindTransport,
		},
		{
			name:     "ConnectionRefused",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			wantKind: models.KindTransport,
		},
		{
			name:     "Unavailable",
			err:      errors.New("rpc error: code = Unavailable desc = connection reset"),
			wantKind: models.KindTransport,
		},
		{
			name:     "InvalidArgument",
			err:      errors.New("rpc error: code = InvalidArgument desc = Request contains an invalid argument."),
			wantKind: models.KindProtocol,
		},
		{
			name:     "QuotaExceeded",
			err:      errors.New("rpc error: code = ResourceExhausted desc = Resource has been exhausted"),
			wantKind: models.KindProtocol,
		},
		{
			name:     "NoCandidates",
			resp:     &genai.GenerateContentResponse{},
			wantKind: models.KindProtocol,
			wantErr:  "no candidates",
		},
		{
			name:     "NoTextParts",
			resp:     textResponse(genai.Blob{MIMEType: "image/png", Data: []byte{1}}),
			wantKind: models.KindProtocol,
			wantErr:  "no text parts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := fakeGemini(func(context.Context, models.Request) (*genai.GenerateContentResponse, error) {
				return tt.resp, tt.err
			})

			res := g.Call(context.Background(), testRequest())

			assert.False(t, res.Success)
			assert.Empty(t, res.Output)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.NotEmpty(t, res.Error)
			if tt.wantErr != "" {
				assert.Contains(t, res.Error, tt.wantErr)
			}
		})
	}
}

func TestGeminiCloseWithoutClient(t *testing.T) {
	assert.NoError(t, fakeGemini(nil).Close())
}
