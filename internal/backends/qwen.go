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

// Qwen calls Alibaba DashScope through its OpenAI compatible endpoint.
type Qwen struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

type qwenChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type qwenChatResponse struct {
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewQwen creates a DashScope client. client may be nil.
func NewQwen(cfg config.BackendConfig, client *http.Client) (*Qwen, error) {
	if cfg.APIKey == "" || cfg.BaseURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%w: qwen needs an API key, base URL and model", ErrNotConfigured)
	}
	return &Qwen{
		http:    newHTTPClient(client, cfg.Timeout),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Backend implements engine.BackendClient.
func (q *Qwen) Backend() models.Backend { return models.BackendQwen }

// Model implements engine.BackendClient.
func (q *Qwen) Model() string { return q.model }

// Call sends one chat completion request.
func (q *Qwen) Call(ctx context.Context, req models.Request) models.Result {
	start := time.Now()

	payload := qwenChatRequest{
		Model:       q.model,
		Messages:    chatMessages(req, true),
		Temperature: req.Temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + q.apiKey}

	data, status, err := doJSON(ctx, q.http, http.MethodPost, q.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		return failure(models.BackendQwen, q.model, err, time.Since(start))
	}

	var resp qwenChatResponse
	if err := decode(data, &resp); err != nil {
		return failure(models.BackendQwen, q.model, err, time.Since(start))
	}
	if resp.Error != nil {
		return models.NewFailure(models.BackendQwen, q.model, models.KindProtocol,
			fmt.Sprintf("qwen error %s: %s", resp.Error.Code, resp.Error.Message), time.Since(start)).
			WithStatus(status)
	}
	if len(resp.Choices) == 0 {
		return models.NewFailure(models.BackendQwen, q.model, models.KindProtocol,
			"qwen response has no choices", time.Since(start)).WithStatus(status)
	}

	model := q.model
	if resp.Model != "" {
		model = resp.Model
	}
	return models.NewSuccess(models.BackendQwen, model, engine.Sanitize(resp.Choices[0].Message.Content),
		resp.Usage.TotalTokens, time.Since(start)).WithStatus(status)
}
