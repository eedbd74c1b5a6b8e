package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/generation"
)

// MockTextGenerator implements generation.TextGenerator for testing
type MockTextGenerator struct {
	// GenerateTextFn allows test cases to mock the GenerateText behavior
	GenerateTextFn func(ctx context.Context, req generation.TextRequest) (*generation.TextResult, error)

	// Default response values
	Result *generation.TextResult
	Err    error

	mu       sync.Mutex
	requests []generation.TextRequest
}

// GenerateText implements the generation.TextGenerator interface
func (m *MockTextGenerator) GenerateText(
	ctx context.Context,
	req generation.TextRequest,
) (*generation.TextResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateTextFn != nil {
		return m.GenerateTextFn(ctx, req)
	}
	return m.Result, m.Err
}

// Requests returns a copy of every request received so far.
func (m *MockTextGenerator) Requests() []generation.TextRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]generation.TextRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many times GenerateText was called.
func (m *MockTextGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// NewMockTextGeneratorWithText creates a MockTextGenerator that answers with text
// and the given token usage.
func NewMockTextGeneratorWithText(text string, usage *domain.TokenUsage) *MockTextGenerator {
	raw, _ := json.Marshal(map[string]string{"text": text})
	return &MockTextGenerator{
		Result: &generation.TextResult{Text: text, Raw: raw, Usage: usage},
	}
}

// NewMockTextGeneratorWithError creates a MockTextGenerator that returns err
func NewMockTextGeneratorWithError(err error) *MockTextGenerator {
	return &MockTextGenerator{Err: err}
}

// MockImageGenerator implements generation.ImageGenerator for testing
type MockImageGenerator struct {
	// GenerateImageFn allows test cases to mock the GenerateImage behavior
	GenerateImageFn func(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error)

	// Default response values
	Result *generation.ImageResult
	Err    error

	mu       sync.Mutex
	requests []generation.ImageRequest
}

// GenerateImage implements the generation.ImageGenerator interface
func (m *MockImageGenerator) GenerateImage(
	ctx context.Context,
	req generation.ImageRequest,
) (*generation.ImageResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateImageFn != nil {
		return m.GenerateImageFn(ctx, req)
	}
	return m.Result, m.Err
}

// Requests returns a copy of every request received so far.
func (m *MockImageGenerator) Requests() []generation.ImageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]generation.ImageRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many times GenerateImage was called.
func (m *MockImageGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// NewMockImageGeneratorWithBase64 creates a MockImageGenerator that answers
// with one inline image.
func NewMockImageGeneratorWithBase64(data string) *MockImageGenerator {
	raw, _ := json.Marshal(map[string]any{"artifacts": []map[string]string{{"base64": data}}})
	return &MockImageGenerator{
		Result: &generation.ImageResult{
			Images: []generation.Image{{Base64: data}},
			Raw:    raw,
		},
	}
}

// NewMockImageGeneratorWithError creates a MockImageGenerator that returns err
func NewMockImageGeneratorWithError(err error) *MockImageGenerator {
	return &MockImageGenerator{Err: err}
}
