package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/genforge-api/internal/api/shared"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"github.com/phrazzld/genforge-api/internal/service"
)

// GenerationHandler handles the /api/generations endpoints.
type GenerationHandler struct {
	generationService service.GenerationService
	validator         *validator.Validate
	logger            *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(generationService service.GenerationService, baseLogger *slog.Logger) *GenerationHandler {
	if baseLogger == nil {
		baseLogger = slog.Default()
	}
	return &GenerationHandler{
		generationService: generationService,
		validator:         validator.New(),
		logger:            baseLogger.With(slog.String("component", "generation_handler")),
	}
}

// CreateGeneration handles POST /api/generations.
//
// The call blocks until the provider answers. A provider failure returns 502
// with the ID of the stored FAILED generation.
func (h *GenerationHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req CreateGenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	input := service.CreateGenerationInput{
		Prompt:     req.Prompt,
		Model:      req.Model,
		TemplateID: req.TemplateID,
		DatasetID:  req.DatasetID,
	}
	if req.Parameters != nil {
		input.Parameters = *req.Parameters
	}

	gen, err := h.generationService.CreateGeneration(r.Context(), userID, input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, CreateGenerationResponse{
		Message:    "Generation completed successfully",
		Generation: generationToResponse(gen),
	})
}

// ListGenerations handles GET /api/generations?page=&limit=.
func (h *GenerationHandler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var (
		query ListGenerationsQuery
		err   error
	)
	if query.Page, err = shared.QueryInt(r, "page", service.DefaultPage); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid page: must be an integer")
		return
	}
	if query.Limit, err = shared.QueryInt(r, "limit", service.DefaultLimit); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit: must be an integer")
		return
	}
	if err := h.validator.Struct(query); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	page, err := h.generationService.GetGenerations(r.Context(), userID, query.Page, query.Limit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, generationPageToResponse(page))
}

// GetGeneration handles GET /api/generations/{id}. A generation owned by
// another user is reported exactly like a missing one.
func (h *GenerationHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	gen, err := h.generationService.GetGenerationByID(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, generationToResponse(gen))
}
