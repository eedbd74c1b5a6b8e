package domain

import "encoding/json"

// Content types recorded in generation metadata.
const (
	ContentTypeText        = "text"
	ContentTypeImageBase64 = "image_base64"
	ContentTypeImageURL    = "image_url"
)

// TokenUsage is the token accounting a provider reports for one call.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Total returns TotalTokens, or the sum of its parts when the provider
// reported only those.
func (u TokenUsage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// GenerationMetadata is the metadata stored with a COMPLETED generation.
type GenerationMetadata struct {
	Provider             string             `json:"provider"`
	Model                string             `json:"model"`
	Category             string             `json:"category"`
	SubCategory          string             `json:"subCategory"`
	ClassificationSource string             `json:"classificationSource,omitempty"`
	ContentType          string             `json:"contentType"`
	ImageCount           int                `json:"imageCount,omitempty"`
	Parameters           ResolvedParameters `json:"parameters"`
	Usage                *TokenUsage        `json:"usage,omitempty"`
}

// ImageOutput is one image of a COMPLETED image generation.
type ImageOutput struct {
	Base64 string `json:"base64,omitempty"`
	URL    string `json:"url,omitempty"`
}

// ImageResult is the result stored with a COMPLETED image generation. It
// lists every returned image; Content holds only the first.
type ImageResult struct {
	Images   []ImageOutput   `json:"images"`
	Provider json.RawMessage `json:"provider,omitempty"`
}
