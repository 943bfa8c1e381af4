package backends

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// Ollama calls a local Ollama server through its chat endpoint.
type Ollama struct {
	http    *http.Client
	baseURL string
	model   string
}

type ollamaChatRequest struct {
	Options  map[string]any `json:"options,omitempty"`
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
}

type ollamaChatResponse struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Model     string `json:"model"`
	Error     string `json:"error"`
	EvalCount int    `json:"eval_count"`
}

// NewOllama creates a client for the local server. client may be nil.
func NewOllama(cfg config.BackendConfig, client *http.Client) (*Ollama, error) {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%w: local server needs a base URL and a model", ErrNotConfigured)
	}
	return &Ollama{
		http:    newHTTPClient(client, cfg.Timeout),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}, nil
}

// Backend implements engine.BackendClient.
func (o *Ollama) Backend() models.Backend { return models.BackendLocal }

// Model implements engine.BackendClient.
func (o *Ollama) Model() string { return o.model }

// Call sends one chat request.
func (o *Ollama) Call(ctx context.Context, req models.Request) models.Result {
	start := time.Now()

	payload := ollamaChatRequest{
		Model:    o.model,
		Messages: chatMessages(req, true),
		Stream:   false,
		Options:  map[string]any{"temperature": req.Temperature},
	}

	data, status, err := doJSON(ctx, o.http, http.MethodPost, o.baseURL+"/api/chat", nil, payload)
	if err != nil {
		return failure(models.BackendLocal, o.model, err, time.Since(start))
	}

	var resp ollamaChatResponse
	if err := decode(data, &resp); err != nil {
		return failure(models.BackendLocal, o.model, err, time.Since(start))
	}
	if resp.Error != "" {
		return models.NewFailure(models.BackendLocal, o.model, models.KindProtocol,
			"local server error: "+resp.Error, time.Since(start)).WithStatus(status)
	}
	if resp.Message == nil {
		return models.NewFailure(models.BackendLocal, o.model, models.KindProtocol,
			"local server response has no message", time.Since(start)).WithStatus(status)
	}

	model := o.model
	if resp.Model != "" {
		model = resp.Model
	}
	return models.NewSuccess(models.BackendLocal, model, engine.Sanitize(resp.Message.Content),
		resp.EvalCount, time.Since(start)).WithStatus(status)
}

// Probe checks that the server answers its model listing endpoint.
func (o *Ollama) Probe(ctx context.Context) error {
	if _, _, err := doJSON(ctx, o.http, http.MethodGet, o.baseURL+"/api/tags", nil, nil); err != nil {
		return fmt.Errorf("local server probe failed: %w", err)
	}
	return nil
}
