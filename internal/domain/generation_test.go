package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func newPendingGeneration(t *testing.T) *Generation {
	t.Helper()
	gen, err := NewGeneration(uuid.New(), "Write a haiku about the sea", "gpt-4o", Parameters{}, nil)
	require.NoError(t, err)
	return gen
}

func TestNewGeneration(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	templateID := uuid.New()
	params := Parameters{Temperature: floatPtr(0.2)}

	gen, err := NewGeneration(userID, "Explain recursion", "  claude-3-opus  ", params, &templateID)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, gen.ID)
	assert.Equal(t, userID, gen.UserID)
	assert.Equal(t, "Explain recursion", gen.Prompt)
	assert.Equal(t, "claude-3-opus", gen.Model)
	assert.Equal(t, GenerationStatusPending, gen.Status)
	assert.Equal(t, &templateID, gen.TemplateID)
	assert.False(t, gen.StartTime.IsZero())
	assert.Nil(t, gen.EndTime)
	assert.Empty(t, gen.Content)
	assert.Empty(t, gen.Error)
}

func TestNewGeneration_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		userID  uuid.UUID
		prompt  string
		model   string
		params  Parameters
		wantErr error
	}{
		{"missing user", uuid.Nil, "hello", "gpt-4o", Parameters{}, ErrEmptyGenerationUserID},
		{"empty prompt", uuid.New(), "", "gpt-4o", Parameters{}, ErrEmptyPrompt},
		{"whitespace prompt", uuid.New(), "   \n\t", "gpt-4o", Parameters{}, ErrEmptyPrompt},
		{"empty model", uuid.New(), "hello", "  ", Parameters{}, ErrEmptyModel},
		{"temperature too high", uuid.New(), "hello", "gpt-4o", Parameters{Temperature: floatPtr(2.5)}, ErrInvalidParameters},
		{"samples too many", uuid.New(), "hello", "gpt-4o", Parameters{Samples: intPtr(9)}, ErrInvalidParameters},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gen, err := NewGeneration(tc.userID, tc.prompt, tc.model, tc.params, nil)
			assert.Nil(t, gen)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestGeneration_Complete(t *testing.T) {
	t.Parallel()

	gen := newPendingGeneration(t)
	raw := json.RawMessage(`{"id":"chatcmpl-1"}`)
	meta := json.RawMessage(`{"provider":"openai"}`)

	require.NoError(t, gen.Complete("A quiet tide rolls in", raw, meta))

	assert.Equal(t, GenerationStatusCompleted, gen.Status)
	assert.Equal(t, "A quiet tide rolls in", gen.Content)
	assert.JSONEq(t, string(raw), string(gen.Result))
	assert.Empty(t, gen.Error)
	require.NotNil(t, gen.EndTime)
	assert.False(t, gen.EndTime.Before(gen.StartTime))
	assert.NoError(t, gen.Validate())
}

func TestGeneration_CompleteRequiresContent(t *testing.T) {
	t.Parallel()

	gen := newPendingGeneration(t)
	assert.ErrorIs(t, gen.Complete("", nil, nil), ErrEmptyContent)
	assert.Equal(t, GenerationStatusPending, gen.Status)
}

func TestGeneration_Fail(t *testing.T) {
	t.Parallel()

	gen := newPendingGeneration(t)
	require.NoError(t, gen.Fail("upstream timeout"))

	assert.Equal(t, GenerationStatusFailed, gen.Status)
	assert.Equal(t, "upstream timeout", gen.Error)
	assert.Empty(t, gen.Content)
	assert.Nil(t, gen.Result)
	require.NotNil(t, gen.EndTime)
	assert.NoError(t, gen.Validate())
}

func TestGeneration_FailWithoutMessage(t *testing.T) {
	t.Parallel()

	gen := newPendingGeneration(t)
	require.NoError(t, gen.Fail("  "))
	assert.Equal(t, "unknown error", gen.Error)
}

func TestGeneration_TerminalStatesAreImmutable(t *testing.T) {
	t.Parallel()

	completed := newPendingGeneration(t)
	require.NoError(t, completed.Complete("done", nil, json.RawMessage(`{}`)))
	endTime := *completed.EndTime

	assert.ErrorIs(t, completed.Fail("late failure"), ErrTerminalState)
	assert.ErrorIs(t, completed.Complete("again", nil, nil), ErrTerminalState)
	assert.Equal(t, GenerationStatusCompleted, completed.Status)
	assert.Equal(t, "done", completed.Content)
	assert.Equal(t, endTime, *completed.EndTime)

	failed := newPendingGeneration(t)
	require.NoError(t, failed.Fail("boom"))

	assert.ErrorIs(t, failed.Complete("recovered", nil, nil), ErrTerminalState)
	assert.Equal(t, GenerationStatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
}

func TestGeneration_ValidateConsistency(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	earlier := now.Add(-time.Minute)
	base := Generation{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Prompt:    "prompt",
		Model:     "gpt-4o",
		StartTime: now,
	}

	tests := []struct {
		name    string
		mutate  func(g *Generation)
		wantErr error
	}{
		{"pending with content", func(g *Generation) {
			g.Status = GenerationStatusPending
			g.Content = "x"
		}, ErrInconsistentGeneration},
		{"pending with end time", func(g *Generation) {
			g.Status = GenerationStatusPending
			g.EndTime = &now
		}, ErrInconsistentGeneration},
		{"completed without output", func(g *Generation) {
			g.Status = GenerationStatusCompleted
			g.EndTime = &now
		}, ErrInconsistentGeneration},
		{"completed with error", func(g *Generation) {
			g.Status = GenerationStatusCompleted
			g.Content = "x"
			g.Error = "y"
			g.EndTime = &now
		}, ErrInconsistentGeneration},
		{"failed with output", func(g *Generation) {
			g.Status = GenerationStatusFailed
			g.Content = "x"
			g.Error = "y"
			g.EndTime = &now
		}, ErrInconsistentGeneration},
		{"end before start", func(g *Generation) {
			g.Status = GenerationStatusFailed
			g.Error = "y"
			g.EndTime = &earlier
		}, ErrInconsistentGeneration},
		{"unknown status", func(g *Generation) {
			g.Status = "RUNNING"
		}, ErrInvalidGenerationStatus},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gen := base
			tc.mutate(&gen)
			assert.ErrorIs(t, gen.Validate(), tc.wantErr)
		})
	}
}

func TestGeneration_Duration(t *testing.T) {
	t.Parallel()

	gen := newPendingGeneration(t)
	assert.Zero(t, gen.Duration())

	require.NoError(t, gen.Fail("x"))
	assert.GreaterOrEqual(t, gen.Duration(), time.Duration(0))
}
