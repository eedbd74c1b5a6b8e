// Package anthropic implements generation.TextGenerator on the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/genforge-api/internal/config"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/generation"
	"github.com/phrazzld/genforge-api/internal/platform/httpclient"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"github.com/tidwall/gjson"
	"resty.dev/v3"
)

const (
	providerName = "anthropic"
	messagesPath = "/v1/messages"
)

// Client calls the Anthropic Messages API.
type Client struct {
	http      *resty.Client
	apiKey    string
	version   string
	maxTokens int
	logger    *slog.Logger
}

var _ generation.TextGenerator = (*Client)(nil)

// NewClient creates an Anthropic client. An empty API key is accepted and
// makes every call fail with generation.ErrInvalidConfig.
func NewClient(cfg config.AnthropicConfig, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		http:      httpclient.NewClient(providerName, cfg.BaseURL, timeout, log),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		version:   cfg.Version,
		maxTokens: cfg.MaxTokens,
		logger:    log.With(slog.String("component", "anthropic_client")),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        *float64  `json:"top_p,omitempty"`
	TopK        int       `json:"top_k,omitempty"`
}

// GenerateText implements generation.TextGenerator.
func (c *Client) GenerateText(ctx context.Context, req generation.TextRequest) (*generation.TextResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key cannot be empty", generation.ErrInvalidConfig)
	}

	log := logger.FromContextOrDefault(ctx, c.logger)

	body := messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.Parameters.MaxTokens,
		System:      req.SystemPrompt,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		Temperature: clampTemperature(req.Parameters.Temperature),
		TopK:        req.Parameters.TopK,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = c.maxTokens
	}
	// top_p is sent only when it narrows sampling.
	if p := req.Parameters.TopP; p > 0 && p < 1 {
		body.TopP = &p
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", c.version).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(messagesPath)
	if err != nil {
		return nil, generation.TransportError(providerName, err)
	}

	raw := resp.Bytes()
	if resp.StatusCode() >= 400 {
		detail := gjson.GetBytes(raw, "error.message").String()
		log.WarnContext(ctx, "anthropic returned an error status",
			slog.Int("status", resp.StatusCode()),
			slog.String("model", req.Model))
		return nil, generation.StatusError(providerName, resp.StatusCode(), detail)
	}

	return parseMessage(raw)
}

func parseMessage(raw []byte) (*generation.TextResult, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: anthropic response is not JSON", generation.ErrInvalidResponse)
	}
	doc := gjson.ParseBytes(raw)

	if doc.Get("stop_reason").String() == "refusal" {
		return nil, fmt.Errorf("%w: anthropic refused the request", generation.ErrContentBlocked)
	}

	var text strings.Builder
	for _, block := range doc.Get("content").Array() {
		if block.Get("type").String() == "text" {
			text.WriteString(block.Get("text").String())
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("%w: anthropic response carried no text", generation.ErrEmptyResult)
	}

	result := &generation.TextResult{Text: text.String(), Raw: append([]byte(nil), raw...)}
	if usage := doc.Get("usage"); usage.Exists() {
		in := int(usage.Get("input_tokens").Int())
		out := int(usage.Get("output_tokens").Int())
		result.Usage = &domain.TokenUsage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}
	}
	return result, nil
}

// clampTemperature maps the shared 0..2 range onto Anthropic's 0..1.
func clampTemperature(t float64) float64 {
	if t > 1 {
		return 1
	}
	if t < 0 {
		return 0
	}
	return t
}
