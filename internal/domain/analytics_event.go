package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AnalyticsEventType classifies what an analytics event is about.
type AnalyticsEventType string

// AnalyticsAction is the action an analytics event records.
type AnalyticsAction string

const (
	AnalyticsEventTypeGeneration AnalyticsEventType = "GENERATION"
	AnalyticsActionGenerate      AnalyticsAction    = "GENERATE"
)

var (
	ErrEmptyAnalyticsGenerationID = errors.New("analytics event generation ID cannot be empty")
	ErrNegativeTokensUsed         = errors.New("tokens used cannot be negative")
)

// AnalyticsEvent is an append-only usage record. One is written for every
// generation that reaches a terminal state.
type AnalyticsEvent struct {
	ID           uuid.UUID          `json:"id"`
	Type         AnalyticsEventType `json:"type"`
	Action       AnalyticsAction    `json:"action"`
	UserID       uuid.UUID          `json:"userId"`
	GenerationID uuid.UUID          `json:"generationId"`
	TokensUsed   int                `json:"tokensUsed"`
	Cost         decimal.Decimal    `json:"cost"`
	Metadata     json.RawMessage    `json:"metadata"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// GenerationEventMetadata is the metadata payload of a GENERATION event.
type GenerationEventMetadata struct {
	Model        string           `json:"model"`
	Provider     string           `json:"provider,omitempty"`
	Parameters   Parameters       `json:"parameters"`
	PromptLength int              `json:"promptLength"`
	Status       GenerationStatus `json:"status"`
	Error        string           `json:"error,omitempty"`
}

// NewGenerationAnalyticsEvent builds the analytics event for a terminal
// generation. Usage may be nil when the provider reported none.
func NewGenerationAnalyticsEvent(
	gen *Generation,
	provider string,
	usage *TokenUsage,
	cost decimal.Decimal,
) (*AnalyticsEvent, error) {
	if gen == nil || gen.ID == uuid.Nil {
		return nil, ErrEmptyAnalyticsGenerationID
	}
	if !gen.IsTerminal() {
		return nil, fmt.Errorf("%w: analytics recorded for %s generation", ErrInconsistentGeneration, gen.Status)
	}

	meta := GenerationEventMetadata{
		Model:        gen.Model,
		Provider:     provider,
		Parameters:   gen.Parameters,
		PromptLength: utf8.RuneCountInString(gen.Prompt),
		Status:       gen.Status,
		Error:        gen.Error,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analytics metadata: %w", err)
	}

	tokens := 0
	if usage != nil {
		tokens = usage.Total()
	}

	event := &AnalyticsEvent{
		ID:           uuid.New(),
		Type:         AnalyticsEventTypeGeneration,
		Action:       AnalyticsActionGenerate,
		UserID:       gen.UserID,
		GenerationID: gen.ID,
		TokensUsed:   tokens,
		Cost:         cost,
		Metadata:     raw,
		CreatedAt:    time.Now().UTC(),
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

// Validate checks if the AnalyticsEvent has valid data.
func (e *AnalyticsEvent) Validate() error {
	if e.ID == uuid.Nil {
		return ErrInvalidID
	}
	if e.UserID == uuid.Nil {
		return ErrEmptyGenerationUserID
	}
	if e.GenerationID == uuid.Nil {
		return ErrEmptyAnalyticsGenerationID
	}
	if e.TokensUsed < 0 {
		return ErrNegativeTokensUsed
	}
	return nil
}
