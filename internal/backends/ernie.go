package backends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// ERNIE error codes that mean the access token is invalid or expired.
const (
	ernieCodeTokenInvalid = 110
	ernieCodeTokenExpired = 111
)

// ernieEndpoints maps model names to their chat endpoint path.
var ernieEndpoints = map[string]string{
	"ernie-4.0-8k":   "completions_pro",
	"ernie-3.5-8k":   "completions",
	"ernie-speed-8k": "ernie_speed",
	"ernie-lite-8k":  "ernie-lite-8k",
}

// Ernie calls Baidu ERNIE with an access token exchanged from an API key pair.
type Ernie struct {
	http      *http.Client
	tokens    *TokenCache
	baseURL   string
	tokenURL  string
	apiKey    string
	secretKey string
	model     string
}

type ernieTokenResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ExpiresIn        int    `json:"expires_in"`
}

type ernieChatRequest struct {
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type ernieChatResponse struct {
	Result    string `json:"result"`
	ErrorMsg  string `json:"error_msg"`
	ErrorCode int    `json:"error_code"`
	Usage     struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewErnie creates an ERNIE client. client may be nil.
func NewErnie(cfg config.BackendConfig, client *http.Client) (*Ernie, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: ernie needs an API key and a secret key", ErrNotConfigured)
	}
	if cfg.BaseURL == "" || cfg.TokenURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%w: ernie needs base and token URLs and a model", ErrNotConfigured)
	}
	e := &Ernie{
		http:      newHTTPClient(client, cfg.Timeout),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		tokenURL:  cfg.TokenURL,
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		model:     cfg.Model,
	}
	e.tokens = NewTokenCache(e.fetchToken)
	return e, nil
}

// Backend implements engine.BackendClient.
func (e *Ernie) Backend() models.Backend { return models.BackendErnie }

// Model implements engine.BackendClient.
func (e *Ernie) Model() string { return e.model }

// Tokens exposes the access token cache.
func (e *Ernie) Tokens() *TokenCache { return e.tokens }

// Call sends one chat request, fetching an access token first if needed.
func (e *Ernie) Call(ctx context.Context, req models.Request) models.Result {
	start := time.Now()

	token, err := e.tokens.Get(ctx)
	if err != nil {
		return failure(models.BackendErnie, e.model, err, time.Since(start))
	}

	payload := ernieChatRequest{
		System:      req.SystemPrompt,
		Messages:    chatMessages(req, false),
		Temperature: clampErnieTemperature(req.Temperature),
	}
	endpoint := e.baseURL + "/" + ernieEndpoint(e.model) + "?access_token=" + url.QueryEscape(token)

	data, status, err := doJSON(ctx, e.http, http.MethodPost, endpoint, nil, payload)
	if err != nil {
		var ce *callError
		if errors.As(err, &ce) && ce.kind == models.KindAuth {
			e.tokens.Invalidate()
			ce.kind = models.KindTokenExpired
		}
		return failure(models.BackendErnie, e.model, err, time.Since(start))
	}

	var resp ernieChatResponse
	if err := decode(data, &resp); err != nil {
		return failure(models.BackendErnie, e.model, err, time.Since(start))
	}

	if resp.ErrorCode != 0 {
		kind := models.KindProtocol
		if resp.ErrorCode == ernieCodeTokenInvalid || resp.ErrorCode == ernieCodeTokenExpired {
			logger.Info("ERNIE access token rejected, discarding cached token", "code", resp.ErrorCode)
			e.tokens.Invalidate()
			kind = models.KindTokenExpired
		}
		return models.NewFailure(models.BackendErnie, e.model, kind,
			fmt.Sprintf("ernie error %d: %s", resp.ErrorCode, resp.ErrorMsg), time.Since(start)).
			WithStatus(status)
	}

	return models.NewSuccess(models.BackendErnie, e.model, engine.Sanitize(resp.Result),
		resp.Usage.TotalTokens, time.Since(start)).WithStatus(status)
}

// fetchToken exchanges the key pair for an access token.
func (e *Ernie) fetchToken(ctx context.Context) (Token, error) {
	q := url.Values{}
	q.Set("grant_type", "client_credentials")
	q.Set("client_id", e.apiKey)
	q.Set("client_secret", e.secretKey)

	sep := "?"
	if strings.Contains(e.tokenURL, "?") {
		sep = "&"
	}

	data, _, err := doJSON(ctx, e.http, http.MethodPost, e.tokenURL+sep+q.Encode(), nil, nil)
	if err != nil {
		return Token{}, err
	}

	var resp ernieTokenResponse
	if err := decode(data, &resp); err != nil {
		return Token{}, err
	}
	if resp.Error != "" {
		return Token{}, newCallError(models.KindAuth, 0, "%w: %s: %s",
			ErrTokenUnavailable, resp.Error, resp.ErrorDescription)
	}
	if resp.AccessToken == "" {
		return Token{}, newCallError(models.KindProtocol, 0, "%w: token response has no access_token",
			ErrTokenUnavailable)
	}

	tok := Token{Value: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		tok.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return tok, nil
}

func ernieEndpoint(model string) string {
	if path, ok := ernieEndpoints[strings.ToLower(model)]; ok {
		return path
	}
	return model
}

// clampErnieTemperature keeps the value inside the (0, 1] range the API accepts.
func clampErnieTemperature(t float64) float64 {
	switch {
	case t <= 0:
		return 0.01
	case t > 1:
		return 1
	default:
		return t
	}
}
