package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerationFinishedEvent(t *testing.T) {
	t.Parallel()

	payload := GenerationFinished{
		GenerationID: uuid.New(),
		UserID:       uuid.New(),
		Status:       "COMPLETED",
		Provider:     "stability",
		Model:        "stable-diffusion-xl-1024-v1-0",
		Category:     "image",
		Duration:     1500 * time.Millisecond,
		TokensUsed:   0,
		Source:       SourceRequest,
	}

	event, err := NewGenerationFinishedEvent(payload)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeGenerationFinished, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded GenerationFinished
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewEventRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewEvent("broken", map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// Error to return from HandleEvent
	HandlerError error

	mu        sync.Mutex
	lastEvent *Event
	handled   int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastEvent = event
	h.handled++
	return h.HandlerError
}

func (h *MockEventHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handled
}

func (h *MockEventHandler) last() *Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastEvent
}

func TestNoopEmitter(t *testing.T) {
	t.Parallel()

	event, err := NewEvent("anything", nil)
	require.NoError(t, err)
	assert.NoError(t, NoopEmitter{}.EmitEvent(context.Background(), event))
}

func TestMockEventHandlerReturnsConfiguredError(t *testing.T) {
	t.Parallel()

	handler := &MockEventHandler{}
	event, err := NewEvent("test_type", map[string]string{"key": "value"})
	require.NoError(t, err)

	assert.NoError(t, handler.HandleEvent(context.Background(), event))

	expectedErr := errors.New("handler error")
	handler.HandlerError = expectedErr
	assert.Equal(t, expectedErr, handler.HandleEvent(context.Background(), event))
	assert.Equal(t, 2, handler.count())
}
