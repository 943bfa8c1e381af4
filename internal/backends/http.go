// Package backends implements one client per LLM backend. Every client turns
// transport, status and decoding problems into a failed models.Result.
package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

var (
	// ErrNotConfigured is returned when a client is built without required settings.
	ErrNotConfigured = errors.New("backend not configured")
	// ErrTokenUnavailable is returned when an access token cannot be obtained.
	ErrTokenUnavailable = errors.New("access token unavailable")
)

// DefaultTimeout is the per-call timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error body is copied into messages.
const maxErrorBody = 300

// callError is a classified failure inside a client call.
type callError struct {
	err    error
	kind   models.ErrorKind
	status int
}

func (e *callError) Error() string { return e.err.Error() }
func (e *callError) Unwrap() error { return e.err }

func newCallError(kind models.ErrorKind, status int, format string, args ...any) *callError {
	return &callError{kind: kind, status: status, err: fmt.Errorf(format, args...)}
}

// failure converts a call error into a failed result.
func failure(b models.Backend, model string, err error, elapsed time.Duration) models.Result {
	var ce *callError
	if errors.As(err, &ce) {
		return models.NewFailure(b, model, ce.kind, ce.Error(), elapsed).WithStatus(ce.status)
	}
	return models.NewFailure(b, model, models.KindTransport, err.Error(), elapsed)
}

// classifyStatus maps a non-2xx HTTP status.
func classifyStatus(status int) models.ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.KindAuth
	default:
		return models.KindProtocol
	}
}

func newHTTPClient(client *http.Client, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		return &http.Client{Timeout: timeout}
	}
	c := *client
	if c.Timeout == 0 {
		c.Timeout = timeout
	}
	return &c
}

// doJSON posts payload as JSON and returns the raw body of a 2xx response.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, newCallError(models.KindProtocol, 0, "failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, newCallError(models.KindConfig, 0, "failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, newCallError(models.KindTransport, 0, "request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, newCallError(models.KindTransport, resp.StatusCode,
			"failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, newCallError(classifyStatus(resp.StatusCode), resp.StatusCode,
			"request failed (status %d): %s", resp.StatusCode, truncate(string(data), maxErrorBody))
	}

	return data, resp.StatusCode, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return newCallError(models.KindProtocol, 0, "failed to parse response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// chatMessage is the role/content pair shared by the chat-style APIs.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func chatMessages(req models.Request, withSystem bool) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if withSystem && req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	return append(msgs, chatMessage{Role: "user", Content: req.Prompt})
}
