package provider

import "strings"

type modelPattern struct {
	prefix     string
	capability Capability
}

// Checked in order; image patterns precede the broader text ones.
var modelPatterns = []modelPattern{
	{"dall-e", Capability{OpenAI, CategoryImage}},
	{"gpt-image", Capability{OpenAI, CategoryImage}},
	{"stable-diffusion", Capability{Stability, CategoryImage}},
	{"stable-image", Capability{Stability, CategoryImage}},
	{"sd3", Capability{Stability, CategoryImage}},
	{"sdxl", Capability{Stability, CategoryImage}},
	{"esrgan", Capability{Stability, CategoryImage}},
	{"gpt-", Capability{OpenAI, CategoryText}},
	{"o1", Capability{OpenAI, CategoryText}},
	{"o3", Capability{OpenAI, CategoryText}},
	{"o4", Capability{OpenAI, CategoryText}},
	{"claude-", Capability{Anthropic, CategoryText}},
	{"gemini-", Capability{Gemini, CategoryText}},
}

func matchModelPattern(model string) (Capability, bool) {
	if model == "" {
		return Capability{}, false
	}
	for _, p := range modelPatterns {
		if strings.HasPrefix(model, p.prefix) {
			return p.capability, true
		}
	}
	// Replicate addresses models as owner/name with an optional :version.
	if owner, name, ok := strings.Cut(model, "/"); ok && owner != "" && name != "" {
		return Capability{Replicate, CategoryImage}, true
	}
	return Capability{}, false
}

// IsImageModel reports whether a model id names an image model by its
// naming pattern alone.
func IsImageModel(model string) bool {
	capability, ok := matchModelPattern(strings.ToLower(strings.TrimSpace(model)))
	return ok && capability.Category == CategoryImage
}
