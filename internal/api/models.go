package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/service"
)

// Bounds on list endpoint query parameters.
const (
	MaxPageLimit  = 100
	MaxPageNumber = 1000000
)

// CreateGenerationRequest defines the payload for POST /api/generations.
type CreateGenerationRequest struct {
	Prompt string `json:"prompt" validate:"required,max=32000"`

	// Model is a model id or "auto"; empty selects the configured default.
	Model      string             `json:"model,omitempty"      validate:"omitempty,max=200"`
	TemplateID *uuid.UUID         `json:"templateId,omitempty"`
	DatasetID  *uuid.UUID         `json:"datasetId,omitempty"`
	Parameters *domain.Parameters `json:"parameters,omitempty"`
}

// ListGenerationsQuery holds the query parameters of GET /api/generations.
type ListGenerationsQuery struct {
	Page  int `validate:"min=1,max=1000000"`
	Limit int `validate:"min=1,max=100"`
}

// GenerationResponse is the API view of one generation.
type GenerationResponse struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	TemplateID *string           `json:"templateId"`
	Prompt     string            `json:"prompt"`
	Model      string            `json:"model"`
	Parameters domain.Parameters `json:"parameters"`
	Status     string            `json:"status"`

	// The output fields are always present and null when not set, so a
	// PENDING or FAILED record has the same shape as a COMPLETED one.
	Content   *string         `json:"content"`
	Result    json.RawMessage `json:"result"`
	Metadata  json.RawMessage `json:"metadata"`
	Error     *string         `json:"error"`
	StartTime time.Time       `json:"startTime"`
	EndTime   *time.Time      `json:"endTime"`
}

// CreateGenerationResponse is returned with 201 Created.
type CreateGenerationResponse struct {
	Message    string             `json:"message"`
	Generation GenerationResponse `json:"generation"`
}

// PaginationResponse describes the page returned by a list endpoint.
type PaginationResponse struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// GenerationListResponse is returned by GET /api/generations.
type GenerationListResponse struct {
	Generations []GenerationResponse `json:"generations"`
	Pagination  PaginationResponse   `json:"pagination"`
}

// GenerationErrorResponse is returned with 502 when the provider failed.
// The FAILED record named by GenerationID is already stored.
type GenerationErrorResponse struct {
	Error        string `json:"error"`
	GenerationID string `json:"generation_id"`
	Retryable    bool   `json:"retryable"`
	TraceID      string `json:"trace_id,omitempty"`
}

func generationToResponse(gen *domain.Generation) GenerationResponse {
	resp := GenerationResponse{
		ID:         gen.ID.String(),
		UserID:     gen.UserID.String(),
		Prompt:     gen.Prompt,
		Model:      gen.Model,
		Parameters: gen.Parameters,
		Status:     string(gen.Status),
		Content:    stringOrNil(gen.Content),
		Result:     gen.Result,
		Metadata:   gen.Metadata,
		Error:      stringOrNil(gen.Error),
		StartTime:  gen.StartTime,
		EndTime:    gen.EndTime,
	}
	if gen.TemplateID != nil {
		id := gen.TemplateID.String()
		resp.TemplateID = &id
	}
	return resp
}

func stringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func generationPageToResponse(page *service.GenerationPage) GenerationListResponse {
	gens := make([]GenerationResponse, 0, len(page.Generations))
	for _, gen := range page.Generations {
		gens = append(gens, generationToResponse(gen))
	}
	return GenerationListResponse{
		Generations: gens,
		Pagination: PaginationResponse{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		},
	}
}
