package backends

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// geminiGenerateFunc runs one generation. It is swapped out in tests.
type geminiGenerateFunc func(ctx context.Context, req models.Request) (*genai.GenerateContentResponse, error)

// Gemini calls Google Gemini through the generative-ai SDK.
type Gemini struct {
	client   *genai.Client
	generate geminiGenerateFunc
	model    string
	timeout  time.Duration
}

// NewGemini creates a Gemini client authenticated with an API key.
func NewGemini(ctx context.Context, cfg config.BackendConfig) (*Gemini, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%w: gemini needs an API key and a model", ErrNotConfigured)
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &Gemini{client: client, model: cfg.Model, timeout: cfg.Timeout}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	g.generate = g.generateContent
	return g, nil
}

// Backend implements engine.BackendClient.
func (g *Gemini) Backend() models.Backend { return models.BackendGemini }

// Model implements engine.BackendClient.
func (g *Gemini) Model() string { return g.model }

// Close releases the SDK client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Call sends one generation request.
func (g *Gemini) Call(ctx context.Context, req models.Request) models.Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.generate(ctx, req)
	if err != nil {
		return models.NewFailure(models.BackendGemini, g.model, classifyGeminiError(err),
			"gemini request failed: "+err.Error(), time.Since(start)).WithStatus(geminiStatus(err))
	}

	text, err := geminiText(resp)
	if err != nil {
		return models.NewFailure(models.BackendGemini, g.model, models.KindProtocol, err.Error(), time.Since(start))
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return models.NewSuccess(models.BackendGemini, g.model, engine.Sanitize(text), tokens, time.Since(start))
}

func (g *Gemini) generateContent(ctx context.Context, req models.Request) (*genai.GenerateContentResponse, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(float32(req.Temperature))
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}
	return model.GenerateContent(ctx, genai.Text(req.Prompt))
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in gemini response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in gemini response")
	}
	return strings.Join(parts, ""), nil
}

func classifyGeminiError(err error) models.ErrorKind {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code)
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return models.KindProtocol
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.KindTransport
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.KindTransport
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"api key not valid", "permissiondenied", "permission denied", "unauthenticated"} {
		if strings.Contains(msg, marker) {
			return models.KindAuth
		}
	}
	for _, marker := range []string{"code = unavailable", "code = deadlineexceeded"} {
		if strings.Contains(msg, marker) {
			return models.KindTransport
		}
	}
	return models.KindProtocol
}

func geminiStatus(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
