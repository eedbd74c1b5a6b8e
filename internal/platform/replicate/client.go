// Package replicate implements generation.ImageGenerator on the Replicate
// predictions API. Predictions are created synchronously where Replicate
// allows it and polled until they settle otherwise.
package replicate

import (
	"context"
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

const providerName = "replicate"

// Prediction statuses reported by Replicate.
const (
	statusStarting   = "starting"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
)

// Client calls the Replicate predictions API.
type Client struct {
	http         *resty.Client
	token        string
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ generation.ImageGenerator = (*Client)(nil)

// NewClient creates a Replicate client. An empty token is accepted and makes
// every call fail with generation.ErrInvalidConfig.
func NewClient(cfg config.ReplicateConfig, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		http:         httpclient.NewClient(providerName, cfg.BaseURL, timeout, log),
		token:        strings.TrimSpace(cfg.APIToken),
		pollInterval: interval,
		logger:       log.With(slog.String("component", "replicate_client")),
	}
}

type predictionInput struct {
	Prompt     string `json:"prompt"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	NumOutputs int    `json:"num_outputs,omitempty"`
}

type predictionRequest struct {
	Version string          `json:"version,omitempty"`
	Input   predictionInput `json:"input"`
}

// GenerateImage implements generation.ImageGenerator.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: replicate API token cannot be empty", generation.ErrInvalidConfig)
	}

	path, version, err := predictionPath(req.Model)
	if err != nil {
		return nil, err
	}

	log := logger.FromContextOrDefault(ctx, c.logger)

	body := predictionRequest{
		Version: version,
		Input: predictionInput{
			Prompt:     req.Prompt,
			Width:      req.Width,
			Height:     req.Height,
			NumOutputs: req.Samples,
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetHeader("Prefer", "wait").
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	raw, err := c.checkResponse(resp, err)
	if err != nil {
		return nil, err
	}

	for {
		prediction := gjson.ParseBytes(raw)
		status := prediction.Get("status").String()

		switch status {
		case statusSucceeded:
			return parseOutput(raw)
		case statusFailed:
			return nil, failureError(prediction.Get("error").String())
		case statusCanceled:
			return nil, fmt.Errorf("%w: replicate prediction was canceled", generation.ErrTransientFailure)
		case statusStarting, statusProcessing:
		default:
			return nil, fmt.Errorf("%w: unknown replicate prediction status %q", generation.ErrInvalidResponse, status)
		}

		pollURL := prediction.Get("urls.get").String()
		if pollURL == "" {
			return nil, fmt.Errorf("%w: pending prediction has no poll URL", generation.ErrInvalidResponse)
		}

		log.DebugContext(ctx, "replicate prediction still running",
			slog.String("prediction_id", prediction.Get("id").String()),
			slog.String("status", status))

		select {
		case <-ctx.Done():
			return nil, generation.TransportError(providerName, ctx.Err())
		case <-time.After(c.pollInterval):
		}

		resp, err = c.http.R().
			SetContext(ctx).
			SetAuthToken(c.token).
			Get(pollURL)
		raw, err = c.checkResponse(resp, err)
		if err != nil {
			return nil, err
		}
	}
}

func (c *Client) checkResponse(resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, generation.TransportError(providerName, err)
	}
	raw := resp.Bytes()
	if resp.StatusCode() >= 400 {
		return nil, generation.StatusError(providerName, resp.StatusCode(), gjson.GetBytes(raw, "detail").String())
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: replicate response is not JSON", generation.ErrInvalidResponse)
	}
	return raw, nil
}

// predictionPath picks the endpoint for model. "owner/name" runs the
// model's latest version; "owner/name:version" pins one.
func predictionPath(model string) (path, version string, err error) {
	name, version, pinned := strings.Cut(model, ":")
	owner, repo, ok := strings.Cut(name, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: replicate model %q must be owner/name[:version]", generation.ErrInvalidConfig, model)
	}
	if pinned {
		if version == "" {
			return "", "", fmt.Errorf("%w: replicate model %q has an empty version", generation.ErrInvalidConfig, model)
		}
		return "/v1/predictions", version, nil
	}
	return fmt.Sprintf("/v1/models/%s/%s/predictions", owner, repo), "", nil
}

// parseOutput accepts either a single URL or a list of URLs.
func parseOutput(raw []byte) (*generation.ImageResult, error) {
	output := gjson.GetBytes(raw, "output")

	var urls []string
	switch {
	case output.IsArray():
		for _, item := range output.Array() {
			if u := item.String(); u != "" {
				urls = append(urls, u)
			}
		}
	case output.Type == gjson.String && output.String() != "":
		urls = append(urls, output.String())
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: replicate prediction produced no output", generation.ErrEmptyResult)
	}

	images := make([]generation.Image, 0, len(urls))
	for _, u := range urls {
		images = append(images, generation.Image{URL: u})
	}
	return &generation.ImageResult{Images: images, Raw: append([]byte(nil), raw...)}, nil
}

func failureError(message string) error {
	if message == "" {
		message = "prediction failed"
	}
	if strings.Contains(strings.ToLower(message), "nsfw") {
		return fmt.Errorf("%w: replicate: %s", generation.ErrContentBlocked, message)
	}
	return fmt.Errorf("%w: replicate: %s", generation.ErrRequestRejected, message)
}
