// Package stability implements generation.ImageGenerator on the Stability AI
// v1 text-to-image REST API.
package stability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/genforge-api/internal/config"
	"github.com/phrazzld/genforge-api/internal/generation"
	"github.com/phrazzld/genforge-api/internal/platform/httpclient"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"github.com/tidwall/gjson"
	"resty.dev/v3"
)

const (
	providerName          = "stability"
	finishContentFiltered = "CONTENT_FILTERED"
)

// Client calls the Stability AI generation endpoint.
type Client struct {
	http        *resty.Client
	apiKey      string
	cfgScale    float64
	steps       int
	stylePreset string
	logger      *slog.Logger
}

var _ generation.ImageGenerator = (*Client)(nil)

// NewClient creates a Stability client. An empty API key is accepted and
// makes every call fail with generation.ErrInvalidConfig.
func NewClient(cfg config.StabilityConfig, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		http:        httpclient.NewClient(providerName, cfg.BaseURL, timeout, log),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		cfgScale:    cfg.CFGScale,
		steps:       cfg.Steps,
		stylePreset: cfg.StylePreset,
		logger:      log.With(slog.String("component", "stability_client")),
	}
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type textToImageRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CFGScale    float64      `json:"cfg_scale,omitempty"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps,omitempty"`
	StylePreset string       `json:"style_preset,omitempty"`
}

// GenerateImage implements generation.ImageGenerator.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: stability API key cannot be empty", generation.ErrInvalidConfig)
	}

	log := logger.FromContextOrDefault(ctx, c.logger)

	body := textToImageRequest{
		TextPrompts: []textPrompt{{Text: req.Prompt, Weight: 1}},
		CFGScale:    c.cfgScale,
		Height:      req.Height,
		Width:       req.Width,
		Samples:     req.Samples,
		Steps:       c.steps,
		StylePreset: c.stylePreset,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetPathParam("engine", req.Model).
		SetBody(body).
		Post("/v1/generation/{engine}/text-to-image")
	if err != nil {
		return nil, generation.TransportError(providerName, err)
	}

	raw := resp.Bytes()
	if resp.StatusCode() >= 400 {
		log.WarnContext(ctx, "stability returned an error status",
			slog.Int("status", resp.StatusCode()),
			slog.String("engine", req.Model))
		return nil, generation.StatusError(providerName, resp.StatusCode(), gjson.GetBytes(raw, "message").String())
	}

	return parseArtifacts(raw)
}

func parseArtifacts(raw []byte) (*generation.ImageResult, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: stability response is not JSON", generation.ErrInvalidResponse)
	}

	artifacts := gjson.GetBytes(raw, "artifacts").Array()
	images := make([]generation.Image, 0, len(artifacts))
	filtered := 0
	for _, artifact := range artifacts {
		if artifact.Get("finishReason").String() == finishContentFiltered {
			filtered++
			continue
		}
		if data := artifact.Get("base64").String(); data != "" {
			images = append(images, generation.Image{Base64: data})
		}
	}

	if len(images) == 0 {
		if filtered > 0 {
			return nil, fmt.Errorf("%w: stability filtered %d artifact(s)", generation.ErrContentBlocked, filtered)
		}
		return nil, fmt.Errorf("%w: stability returned no artifacts", generation.ErrEmptyResult)
	}

	// The raw body holds every image inline; only the artifact metadata is kept.
	return &generation.ImageResult{Images: images, Raw: artifactSummary(artifacts)}, nil
}

type artifactMeta struct {
	Seed         int64  `json:"seed"`
	FinishReason string `json:"finishReason"`
}

func artifactSummary(artifacts []gjson.Result) []byte {
	meta := make([]artifactMeta, 0, len(artifacts))
	for _, artifact := range artifacts {
		meta = append(meta, artifactMeta{
			Seed:         artifact.Get("seed").Int(),
			FinishReason: artifact.Get("finishReason").String(),
		})
	}
	raw, err := json.Marshal(map[string][]artifactMeta{"artifacts": meta})
	if err != nil {
		return nil
	}
	return raw
}
