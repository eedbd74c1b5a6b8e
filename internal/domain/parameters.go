package domain

// Default values applied to generation parameters the caller leaves unset.
const (
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 1000
	DefaultTopP             = 1.0
	DefaultFrequencyPenalty = 0.0
	DefaultPresencePenalty  = 0.0
	DefaultImageWidth       = 1024
	DefaultImageHeight      = 1024
	DefaultImageSamples     = 1

	// Upper bounds keep values within every provider's int32 fields.
	MaxMaxTokens = 200000
	MaxTopK      = 1000
)

// Parameters is the canonical, camelCase parameter set accepted with a
// generation request. Every field is optional; nil means "use the default".
type Parameters struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"maxTokens,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	TopK             *int     `json:"topK,omitempty"`
	FrequencyPenalty *float64 `json:"frequencyPenalty,omitempty"`
	PresencePenalty  *float64 `json:"presencePenalty,omitempty"`
	Width            *int     `json:"width,omitempty"`
	Height           *int     `json:"height,omitempty"`
	Samples          *int     `json:"samples,omitempty"`
}

// ResolvedParameters is a Parameters value with defaults filled in.
// TopK stays zero when unset since not every provider accepts it.
type ResolvedParameters struct {
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"maxTokens"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK,omitempty"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	PresencePenalty  float64 `json:"presencePenalty"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Samples          int     `json:"samples"`
}

// Validate checks every set parameter against its allowed range.
func (p Parameters) Validate() error {
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return NewValidationError("temperature", "must be between 0 and 2", ErrInvalidParameters)
	}
	if p.MaxTokens != nil && (*p.MaxTokens < 1 || *p.MaxTokens > MaxMaxTokens) {
		return NewValidationError("maxTokens", "must be between 1 and 200000", ErrInvalidParameters)
	}
	if p.TopP != nil && (*p.TopP < 0 || *p.TopP > 1) {
		return NewValidationError("topP", "must be between 0 and 1", ErrInvalidParameters)
	}
	if p.TopK != nil && (*p.TopK < 1 || *p.TopK > MaxTopK) {
		return NewValidationError("topK", "must be between 1 and 1000", ErrInvalidParameters)
	}
	if p.FrequencyPenalty != nil && (*p.FrequencyPenalty < -2 || *p.FrequencyPenalty > 2) {
		return NewValidationError("frequencyPenalty", "must be between -2 and 2", ErrInvalidParameters)
	}
	if p.PresencePenalty != nil && (*p.PresencePenalty < -2 || *p.PresencePenalty > 2) {
		return NewValidationError("presencePenalty", "must be between -2 and 2", ErrInvalidParameters)
	}
	if p.Width != nil && (*p.Width < 256 || *p.Width > 2048) {
		return NewValidationError("width", "must be between 256 and 2048", ErrInvalidParameters)
	}
	if p.Height != nil && (*p.Height < 256 || *p.Height > 2048) {
		return NewValidationError("height", "must be between 256 and 2048", ErrInvalidParameters)
	}
	if p.Samples != nil && (*p.Samples < 1 || *p.Samples > 4) {
		return NewValidationError("samples", "must be between 1 and 4", ErrInvalidParameters)
	}
	return nil
}

// WithDefaults returns the parameter set with every unset field defaulted.
func (p Parameters) WithDefaults() ResolvedParameters {
	resolved := ResolvedParameters{
		Temperature:      DefaultTemperature,
		MaxTokens:        DefaultMaxTokens,
		TopP:             DefaultTopP,
		FrequencyPenalty: DefaultFrequencyPenalty,
		PresencePenalty:  DefaultPresencePenalty,
		Width:            DefaultImageWidth,
		Height:           DefaultImageHeight,
		Samples:          DefaultImageSamples,
	}

	if p.Temperature != nil {
		resolved.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		resolved.MaxTokens = *p.MaxTokens
	}
	if p.TopP != nil {
		resolved.TopP = *p.TopP
	}
	if p.TopK != nil {
		resolved.TopK = *p.TopK
	}
	if p.FrequencyPenalty != nil {
		resolved.FrequencyPenalty = *p.FrequencyPenalty
	}
	if p.PresencePenalty != nil {
		resolved.PresencePenalty = *p.PresencePenalty
	}
	if p.Width != nil {
		resolved.Width = *p.Width
	}
	if p.Height != nil {
		resolved.Height = *p.Height
	}
	if p.Samples != nil {
		resolved.Samples = *p.Samples
	}

	return resolved
}
