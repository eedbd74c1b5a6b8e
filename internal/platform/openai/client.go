// Package openai adapts the OpenAI API to the generation interfaces. One
// Client serves chat completions, image generation and the short
// classification calls the classifier makes.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/genforge-api/internal/classifier"
	"github.com/phrazzld/genforge-api/internal/config"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/generation"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	providerName           = "openai"
	contentPolicyViolation = "content_policy_violation"
	refineMaxTokens        = 20
)

// Client wraps a go-openai client.
type Client struct {
	api             *goopenai.Client
	classifierModel string
	logger          *slog.Logger
}

var (
	_ generation.TextGenerator  = (*Client)(nil)
	_ generation.ImageGenerator = (*Client)(nil)
	_ classifier.Refiner        = (*Client)(nil)
)

// NewClient creates an OpenAI client. An empty API key is accepted and makes
// every call fail with generation.ErrInvalidConfig.
func NewClient(cfg config.OpenAIConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		classifierModel: cfg.ClassifierModel,
		logger:          log.With(slog.String("component", "openai_client")),
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return c
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	apiCfg.OrgID = cfg.Organization
	c.api = goopenai.NewClientWithConfig(apiCfg)
	return c
}

// Configured reports whether an API key was supplied.
func (c *Client) Configured() bool {
	return c.api != nil
}

// GenerateText implements generation.TextGenerator.
func (c *Client) GenerateText(ctx context.Context, req generation.TextRequest) (*generation.TextResult, error) {
	if c.api == nil {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}

	p := req.Parameters
	chatReq := goopenai.ChatCompletionRequest{
		Model:            req.Model,
		Messages:         messages(req.SystemPrompt, req.Prompt),
		MaxTokens:        p.MaxTokens,
		Temperature:      float32(p.Temperature),
		TopP:             float32(p.TopP),
		FrequencyPenalty: float32(p.FrequencyPenalty),
		PresencePenalty:  float32(p.PresencePenalty),
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		logger.FromContextOrDefault(ctx, c.logger).WarnContext(ctx, "openai chat completion failed",
			slog.String("model", req.Model),
			slog.String("error", err.Error()))
		return nil, mapError(err)
	}

	text, err := completionText(resp)
	if err != nil {
		return nil, err
	}

	result := &generation.TextResult{
		Text: text,
		Usage: &domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if raw, err := json.Marshal(resp); err == nil {
		result.Raw = raw
	}
	return result, nil
}

// GenerateImage implements generation.ImageGenerator.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error) {
	if c.api == nil {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}

	resp, err := c.api.CreateImage(ctx, goopenai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          req.Model,
		N:              req.Samples,
		Size:           fmt.Sprintf("%dx%d", req.Width, req.Height),
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, c.logger).WarnContext(ctx, "openai image generation failed",
			slog.String("model", req.Model),
			slog.String("error", err.Error()))
		return nil, mapError(err)
	}

	images := make([]generation.Image, 0, len(resp.Data))
	revised := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.B64JSON == "" && d.URL == "" {
			continue
		}
		images = append(images, generation.Image{Base64: d.B64JSON, URL: d.URL})
		revised = append(revised, d.RevisedPrompt)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: openai returned no images", generation.ErrEmptyResult)
	}

	raw, _ := json.Marshal(map[string]any{
		"created":        resp.Created,
		"revisedPrompts": revised,
	})
	return &generation.ImageResult{Images: images, Raw: raw}, nil
}

// Refine implements classifier.Refiner with a short deterministic completion.
func (c *Client) Refine(ctx context.Context, instructions, prompt string) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.classifierModel,
		Messages:    messages(instructions, prompt),
		MaxTokens:   refineMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", mapError(err)
	}
	return completionText(resp)
}

func messages(system, prompt string) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	return append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})
}

func completionText(resp goopenai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", generation.ErrEmptyResult)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == goopenai.FinishReasonContentFilter {
		return "", fmt.Errorf("%w: openai content filter", generation.ErrContentBlocked)
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", fmt.Errorf("%w: openai returned an empty message", generation.ErrEmptyResult)
	}
	return choice.Message.Content, nil
}

func mapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if fmt.Sprint(apiErr.Code) == contentPolicyViolation {
			return fmt.Errorf("%w: openai: %s", generation.ErrContentBlocked, apiErr.Message)
		}
		if apiErr.HTTPStatusCode > 0 {
			return generation.StatusError(providerName, apiErr.HTTPStatusCode, apiErr.Message)
		}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return generation.StatusError(providerName, reqErr.HTTPStatusCode, "")
	}

	return generation.TransportError(providerName, err)
}
