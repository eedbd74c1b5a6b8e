package generation

import (
	"context"
	"encoding/json"

	"github.com/phrazzld/genforge-api/internal/domain"
)

// TextRequest is a single text completion request.
type TextRequest struct {
	Model        string
	Prompt       string
	SystemPrompt string
	Parameters   domain.ResolvedParameters
}

// TextResult is the normalized output of a text completion.
type TextResult struct {
	Text string
	// Raw is the provider response body, stored verbatim with the generation.
	Raw   json.RawMessage
	Usage *domain.TokenUsage
}

// ImageRequest is a single text-to-image request.
type ImageRequest struct {
	Model      string
	Prompt     string
	Width      int
	Height     int
	Samples    int
	Parameters domain.ResolvedParameters
}

// Image is one generated image, either inline base64 data or a hosted URL.
type Image struct {
	Base64 string
	URL    string
}

// Reference returns the inline data when present, otherwise the URL.
func (i Image) Reference() string {
	if i.Base64 != "" {
		return i.Base64
	}
	return i.URL
}

// ImageResult is the normalized output of an image generation.
type ImageResult struct {
	Images []Image
	Raw    json.RawMessage
}

// TextGenerator is implemented by providers that produce text.
type TextGenerator interface {
	// GenerateText runs one completion. Errors are classified by the
	// sentinels in errors.go.
	GenerateText(ctx context.Context, req TextRequest) (*TextResult, error)
}

// ImageGenerator is implemented by providers that produce images.
type ImageGenerator interface {
	// GenerateImage runs one text-to-image request. An empty Images slice
	// is reported as ErrEmptyResult rather than returned.
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}
