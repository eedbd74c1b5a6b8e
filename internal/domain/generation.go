package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerationStatus represents the lifecycle state of a generation.
type GenerationStatus string

// Possible generation status values
const (
	GenerationStatusPending   GenerationStatus = "PENDING"
	GenerationStatusCompleted GenerationStatus = "COMPLETED"
	GenerationStatusFailed    GenerationStatus = "FAILED"
)

// Common validation errors for Generation
var (
	ErrEmptyGenerationID       = errors.New("generation ID cannot be empty")
	ErrEmptyGenerationUserID   = errors.New("generation user ID cannot be empty")
	ErrEmptyPrompt             = errors.New("prompt cannot be empty")
	ErrEmptyModel              = errors.New("model cannot be empty")
	ErrInvalidGenerationStatus = errors.New("invalid generation status")
	ErrInconsistentGeneration  = errors.New("generation fields inconsistent with status")

	// ErrTerminalState is returned when a COMPLETED or FAILED generation is
	// asked to transition again.
	ErrTerminalState = errors.New("generation already in a terminal state")
)

// unknownFailure is recorded when a failure arrives without a message.
const unknownFailure = "unknown error"

// Generation is one request to produce content from an AI provider, with its
// lifecycle status and either its output or its failure detail.
type Generation struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"userId"`
	TemplateID *uuid.UUID       `json:"templateId,omitempty"`
	Prompt     string           `json:"prompt"`
	Model      string           `json:"model"`
	Parameters Parameters       `json:"parameters"`
	Status     GenerationStatus `json:"status"`

	// Set only when Status is COMPLETED.
	Content  string          `json:"content,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// Set only when Status is FAILED.
	Error string `json:"error,omitempty"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// NewGeneration creates a PENDING generation owned by userID.
// It generates a new UUID and stamps the start time.
// Returns an error if validation fails.
func NewGeneration(
	userID uuid.UUID,
	prompt string,
	model string,
	params Parameters,
	templateID *uuid.UUID,
) (*Generation, error) {
	gen := &Generation{
		ID:         uuid.New(),
		UserID:     userID,
		TemplateID: templateID,
		Prompt:     prompt,
		Model:      strings.TrimSpace(model),
		Parameters: params,
		Status:     GenerationStatusPending,
		StartTime:  time.Now().UTC(),
	}

	if err := gen.Validate(); err != nil {
		return nil, err
	}

	return gen, nil
}

// Validate checks field presence and the status/output consistency rules:
// a PENDING record carries neither output nor failure, a terminal record
// carries exactly one of them and an end time no earlier than its start.
func (g *Generation) Validate() error {
	if g.ID == uuid.Nil {
		return ErrEmptyGenerationID
	}

	if g.UserID == uuid.Nil {
		return ErrEmptyGenerationUserID
	}

	if strings.TrimSpace(g.Prompt) == "" {
		return ErrEmptyPrompt
	}

	if g.Model == "" {
		return ErrEmptyModel
	}

	if err := g.Parameters.Validate(); err != nil {
		return err
	}

	hasOutput := g.Content != "" || len(g.Result) > 0 || len(g.Metadata) > 0
	hasFailure := g.Error != ""

	switch g.Status {
	case GenerationStatusPending:
		if hasOutput || hasFailure || g.EndTime != nil {
			return ErrInconsistentGeneration
		}
	case GenerationStatusCompleted:
		if !hasOutput || hasFailure {
			return ErrInconsistentGeneration
		}
	case GenerationStatusFailed:
		if hasOutput || !hasFailure {
			return ErrInconsistentGeneration
		}
	default:
		return ErrInvalidGenerationStatus
	}

	if g.IsTerminal() && (g.EndTime == nil || g.EndTime.Before(g.StartTime)) {
		return ErrInconsistentGeneration
	}

	return nil
}

// IsTerminal reports whether the generation is COMPLETED or FAILED.
func (g *Generation) IsTerminal() bool {
	return g.Status == GenerationStatusCompleted || g.Status == GenerationStatusFailed
}

// Complete transitions a PENDING generation to COMPLETED with its output.
func (g *Generation) Complete(content string, result, metadata json.RawMessage) error {
	if g.IsTerminal() {
		return ErrTerminalState
	}
	if content == "" {
		return ErrEmptyContent
	}

	g.Status = GenerationStatusCompleted
	g.Content = content
	g.Result = result
	g.Metadata = metadata
	g.Error = ""
	g.markEnded()
	return nil
}

// Fail transitions a PENDING generation to FAILED with the given message.
func (g *Generation) Fail(message string) error {
	if g.IsTerminal() {
		return ErrTerminalState
	}
	if strings.TrimSpace(message) == "" {
		message = unknownFailure
	}

	g.Status = GenerationStatusFailed
	g.Error = message
	g.Content = ""
	g.Result = nil
	g.Metadata = nil
	g.markEnded()
	return nil
}

// Duration returns how long the generation ran, or zero while PENDING.
func (g *Generation) Duration() time.Duration {
	if g.EndTime == nil {
		return 0
	}
	return g.EndTime.Sub(g.StartTime)
}

func (g *Generation) markEnded() {
	end := time.Now().UTC()
	if end.Before(g.StartTime) {
		end = g.StartTime
	}
	g.EndTime = &end
}

// IsValidGenerationStatus checks if the given status is a valid GenerationStatus.
func IsValidGenerationStatus(status GenerationStatus) bool {
	switch status {
	case GenerationStatusPending, GenerationStatusCompleted, GenerationStatusFailed:
		return true
	default:
		return false
	}
}
