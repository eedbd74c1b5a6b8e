package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/genforge-api/internal/config"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/generation"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"google.golang.org/genai"
)

const providerName = "gemini"

// Generator implements generation.TextGenerator using Google's Gemini API.
type Generator struct {
	logger *slog.Logger
	client *genai.Client
}

var _ generation.TextGenerator = (*Generator)(nil)

// NewGenerator creates a Gemini text generator.
//
// A missing API key is not an error here: the generator is still returned
// and every call on it fails with generation.ErrInvalidConfig, so routing to
// an unconfigured provider is reported per generation instead of at startup.
func NewGenerator(ctx context.Context, log *slog.Logger, cfg config.GeminiConfig) (*Generator, error) {
	if log == nil {
		log = slog.Default()
	}
	g := &Generator{logger: log.With(slog.String("component", "gemini_generator"))}

	if strings.TrimSpace(cfg.APIKey) == "" {
		g.logger.WarnContext(ctx, "gemini API key not configured; gemini generations will fail")
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	g.client = client

	return g, nil
}

// GenerateText implements generation.TextGenerator.
func (g *Generator) GenerateText(ctx context.Context, req generation.TextRequest) (*generation.TextResult, error) {
	if g.client == nil {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	log := logger.FromContextOrDefault(ctx, g.logger)
	log.DebugContext(ctx, "calling gemini",
		slog.String("model", req.Model),
		slog.Int("prompt_length", len(req.Prompt)))

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), contentConfig(req))
	if err != nil {
		return nil, mapError(err)
	}

	result, err := extractText(resp)
	if err != nil {
		log.WarnContext(ctx, "gemini returned no usable text",
			slog.String("model", req.Model),
			slog.String("error", err.Error()))
		return nil, err
	}

	return result, nil
}

func contentConfig(req generation.TextRequest) *genai.GenerateContentConfig {
	p := req.Parameters
	cfg := &genai.GenerateContentConfig{
		Temperature:     ptr(float32(p.Temperature)),
		TopP:            ptr(float32(p.TopP)),
		MaxOutputTokens: int32(p.MaxTokens),
	}
	if p.TopK > 0 {
		cfg.TopK = ptr(float32(p.TopK))
	}
	if p.FrequencyPenalty != 0 {
		cfg.FrequencyPenalty = ptr(float32(p.FrequencyPenalty))
	}
	if p.PresencePenalty != 0 {
		cfg.PresencePenalty = ptr(float32(p.PresencePenalty))
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	return cfg
}

// extractText pulls the first candidate's text out of resp, mapping safety
// blocks and empty answers onto the generation error taxonomy.
func extractText(resp *genai.GenerateContentResponse) (*generation.TextResult, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", generation.ErrEmptyResult)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: response blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrEmptyResult)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("%w: candidate carried no text", generation.ErrEmptyResult)
	}

	result := &generation.TextResult{Text: text.String()}
	if raw, err := json.Marshal(resp); err == nil {
		result.Raw = raw
	}
	if u := resp.UsageMetadata; u != nil {
		result.Usage = &domain.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return result, nil
}

func mapError(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch apiErr := any(e).(type) {
		case genai.APIError:
			return generation.StatusError(providerName, apiErr.Code, apiErr.Message)
		case *genai.APIError:
			return generation.StatusError(providerName, apiErr.Code, apiErr.Message)
		}
	}
	return generation.TransportError(providerName, err)
}

func ptr[T any](v T) *T {
	return &v
}
