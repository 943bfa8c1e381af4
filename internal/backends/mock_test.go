package backends

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// MockRoundTripper lets a test answer HTTP requests without a server.
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func backendConfig(baseURL string) config.BackendConfig {
	return config.BackendConfig{
		BaseURL: baseURL,
		Model:   "test-model",
		APIKey:  "key",
		Timeout: 2 * time.Second,
	}
}

func testRequest() models.Request {
	return models.Request{
		Prompt:       "Write a product title",
		SystemPrompt: "You are concise.",
		Temperature:  0.7,
		Complexity:   models.ComplexityMedium,
	}
}
