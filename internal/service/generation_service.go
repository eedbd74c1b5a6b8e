package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/classifier"
	"github.com/phrazzld/genforge-api/internal/config"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/events"
	"github.com/phrazzld/genforge-api/internal/generation"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"github.com/phrazzld/genforge-api/internal/provider"
	"github.com/phrazzld/genforge-api/internal/redact"
	"github.com/phrazzld/genforge-api/internal/store"
	"github.com/shopspring/decimal"
)

// AutoModel asks the service to pick provider and model by classifying the prompt.
const AutoModel = "auto"

// Pagination defaults applied when the caller passes a non-positive value.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxPage      = 1000000
	MaxLimit     = 100
)

// Router resolves a request to a provider and returns the bound adapter.
// *provider.Registry implements it.
type Router interface {
	Resolve(category provider.Category, sub provider.SubCategory) (provider.Route, error)
	ResolveModel(model string) (provider.ProviderID, provider.Category, error)
	TextGenerator(p provider.ProviderID) (generation.TextGenerator, error)
	ImageGenerator(p provider.ProviderID) (generation.ImageGenerator, error)
}

// PromptClassifier decides the category of a prompt. *classifier.Classifier
// implements it.
type PromptClassifier interface {
	Classify(ctx context.Context, prompt string) classifier.Classification
}

// CreateGenerationInput is one generation request.
type CreateGenerationInput struct {
	Prompt string
	// Model is a model id, "auto", or empty for the configured default.
	Model      string
	TemplateID *uuid.UUID
	// DatasetID names reference material appended to the system prompt of
	// text generations.
	DatasetID  *uuid.UUID
	Parameters domain.Parameters
}

// GenerationPage is one page of a user's generations.
type GenerationPage struct {
	Generations []*domain.Generation
	Total       int
	Page        int
	Limit       int
	TotalPages  int
}

// GenerationServiceConfig tunes the orchestrator.
type GenerationServiceConfig struct {
	DefaultModel        string
	DefaultSystemPrompt string
	ProviderTimeout     time.Duration
	// Pricing maps a lower-cased model id to its price per thousand tokens.
	Pricing map[string]decimal.Decimal
}

// GenerationService runs generations and reads them back.
type GenerationService interface {
	// CreateGeneration records a PENDING generation, invokes the provider and
	// persists the terminal state with its analytics event. A provider failure
	// is returned as *GenerationError after the FAILED record is saved.
	CreateGeneration(ctx context.Context, userID uuid.UUID, input CreateGenerationInput) (*domain.Generation, error)

	// GetGenerations returns one page of userID's generations, newest first.
	GetGenerations(ctx context.Context, userID uuid.UUID, page, limit int) (*GenerationPage, error)

	// GetGenerationByID returns a generation owned by userID, or ErrGenerationNotFound.
	GetGenerationByID(ctx context.Context, userID, id uuid.UUID) (*domain.Generation, error)
}

type generationServiceImpl struct {
	generations store.GenerationStore
	txRunner    store.TxRunner
	templates   store.TemplateStore
	datasets    store.DatasetStore
	router      Router
	classifier  PromptClassifier
	emitter     events.EventEmitter
	cfg         GenerationServiceConfig
	logger      *slog.Logger
}

var _ GenerationService = (*generationServiceImpl)(nil)

// NewGenerationService creates a GenerationService.
// It returns an error if any of the required dependencies are nil.
func NewGenerationService(
	generations store.GenerationStore,
	txRunner store.TxRunner,
	templates store.TemplateStore,
	datasets store.DatasetStore,
	router Router,
	promptClassifier PromptClassifier,
	emitter events.EventEmitter,
	cfg GenerationServiceConfig,
	logger *slog.Logger,
) (GenerationService, error) {
	switch {
	case generations == nil:
		return nil, NewServiceError("generation", "create_service", errors.New("generations store cannot be nil"))
	case txRunner == nil:
		return nil, NewServiceError("generation", "create_service", errors.New("txRunner cannot be nil"))
	case templates == nil:
		return nil, NewServiceError("generation", "create_service", errors.New("templates store cannot be nil"))
	case datasets == nil:
		return nil, NewServiceError("generation", "create_service", errors.New("datasets store cannot be nil"))
	case router == nil:
		return nil, NewServiceError("generation", "create_service", errors.New("router cannot be nil"))
	case promptClassifier == nil:
		return nil, NewServiceError("generation", "create_service", errors.New("classifier cannot be nil"))
	}

	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.DefaultModel) == "" {
		cfg.DefaultModel = AutoModel
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 60 * time.Second
	}

	return &generationServiceImpl{
		generations: generations,
		txRunner:    txRunner,
		templates:   templates,
		datasets:    datasets,
		router:      router,
		classifier:  promptClassifier,
		emitter:     emitter,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "generation_service")),
	}, nil
}

// ParsePricing converts configured prices into the lookup used for analytics cost.
func ParsePricing(prices []config.ModelPrice) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(prices))
	for _, p := range prices {
		price, err := decimal.NewFromString(p.PerThousandTokens)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for model %s: %w", p.PerThousandTokens, p.Model, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("price for model %s cannot be negative", p.Model)
		}
		out[strings.ToLower(strings.TrimSpace(p.Model))] = price
	}
	return out, nil
}

// outcome is the normalized result of one adapter call.
type outcome struct {
	content     string
	contentType string
	imageCount  int
	raw         json.RawMessage
	usage       *domain.TokenUsage
}

// CreateGeneration implements GenerationService.
func (s *generationServiceImpl) CreateGeneration(
	ctx context.Context,
	userID uuid.UUID,
	input CreateGenerationInput,
) (*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}
	if strings.TrimSpace(input.Prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	if err := input.Parameters.Validate(); err != nil {
		return nil, err
	}

	model := strings.TrimSpace(input.Model)
	if model == "" {
		model = s.cfg.DefaultModel
	}

	systemPrompt := s.cfg.DefaultSystemPrompt
	if input.TemplateID != nil {
		tmpl, err := s.templates.GetByIDForUser(ctx, *input.TemplateID, userID)
		if err != nil {
			return nil, newGenerationServiceError("create_generation", err)
		}
		systemPrompt = tmpl.Content
	}
	if input.DatasetID != nil {
		ds, err := s.datasets.GetByIDForUser(ctx, *input.DatasetID, userID)
		if err != nil {
			return nil, newGenerationServiceError("create_generation", err)
		}
		systemPrompt = withDataset(systemPrompt, ds)
	}

	gen, err := domain.NewGeneration(userID, input.Prompt, model, input.Parameters, input.TemplateID)
	if err != nil {
		return nil, err
	}

	// From here on the attempt must reach a terminal state even if the
	// caller goes away.
	ctx = context.WithoutCancel(ctx)
	log = log.With(
		slog.String("generation_id", gen.ID.String()),
		slog.String("user_id", userID.String()))

	if err := s.generations.Create(ctx, gen); err != nil {
		log.Error("failed to save pending generation", slog.String("error", redact.Error(err)))
		return nil, newGenerationServiceError("create_generation", err)
	}

	route, classification, err := s.resolve(ctx, model, input.Prompt)
	if err == nil {
		gen.Model = route.Model
		log = log.With(
			slog.String("provider", string(route.Provider)),
			slog.String("model", route.Model),
			slog.String("category", string(route.Category)))
	}

	var out *outcome
	if err == nil {
		out, err = s.invoke(ctx, route, gen.Prompt, systemPrompt, gen.Parameters.WithDefaults())
	}

	if err == nil {
		err = s.complete(gen, route, classification, out)
	}

	var genErr *GenerationError
	if err != nil {
		genErr = &GenerationError{
			GenerationID: gen.ID,
			Kind:         generation.KindOf(err),
			Message:      err.Error(),
			Err:          err,
		}
		log.Warn("generation failed",
			slog.String("error_kind", string(genErr.Kind)),
			slog.String("error", redact.Error(err)))
		if failErr := gen.Fail(genErr.Message); failErr != nil {
			return nil, newGenerationServiceError("create_generation", failErr)
		}
		out = nil
	}

	var usage *domain.TokenUsage
	if out != nil {
		usage = out.usage
	}
	tokens, persistErr := s.persistTerminal(ctx, gen, route.Provider, usage)
	if persistErr != nil {
		log.Error("failed to persist terminal generation state",
			slog.String("status", string(gen.Status)),
			slog.String("error", redact.Error(persistErr)))
		if genErr != nil {
			return nil, genErr
		}
		return nil, newGenerationServiceError("create_generation", persistErr)
	}

	s.emitFinished(ctx, gen, route, genErr, tokens)

	if genErr != nil {
		return nil, genErr
	}

	log.Info("generation completed", slog.Duration("duration", gen.Duration()))
	return gen, nil
}

// withDataset appends the dataset as labelled reference material.
func withDataset(systemPrompt string, ds *domain.Dataset) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString("Reference dataset \"")
	b.WriteString(ds.Name)
	b.WriteString("\" (")
	b.WriteString(strings.ToLower(ds.Type))
	b.WriteString("):\n")
	b.WriteString(ds.Content)
	return b.String()
}

// resolve picks the route for model. "auto" classifies the prompt and uses
// the registry's primary provider; an explicit model is looked up directly
// and the prompt is classified locally for the record's metadata only.
func (s *generationServiceImpl) resolve(
	ctx context.Context,
	model string,
	prompt string,
) (provider.Route, classifier.Classification, error) {
	if strings.EqualFold(model, AutoModel) {
		classification := s.classifier.Classify(ctx, prompt)
		route, err := s.router.Resolve(classification.Category, classification.SubCategory)
		return route, classification, err
	}

	providerID, category, err := s.router.ResolveModel(model)
	if err != nil {
		return provider.Route{}, classifier.Classification{}, err
	}

	classification := classifier.ClassifyLocal(prompt)
	if classification.Category != category || !provider.IsSubCategoryOf(category, classification.SubCategory) {
		classification = classifier.Classification{
			Category:    category,
			SubCategory: provider.SubCategoryGeneral,
			Source:      classifier.SourceKeyword,
		}
	}

	return provider.Route{
		Provider:    providerID,
		Category:    category,
		SubCategory: classification.SubCategory,
		Model:       model,
	}, classification, nil
}

// invoke calls the adapter for route under the provider timeout. A panic
// inside the adapter is reported as a failure.
func (s *generationServiceImpl) invoke(
	ctx context.Context,
	route provider.Route,
	prompt string,
	systemPrompt string,
	params domain.ResolvedParameters,
) (out *outcome, err error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("%s adapter panicked: %v", route.Provider, p)
		}
	}()

	switch route.Category {
	case provider.CategoryImage:
		out, err = s.invokeImage(callCtx, route, prompt, params)
	default:
		out, err = s.invokeText(callCtx, route, prompt, systemPrompt, params)
	}

	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, generation.ErrTimeout) {
		err = fmt.Errorf("%w: %s did not answer within %s: %v", generation.ErrTimeout, route.Provider, s.cfg.ProviderTimeout, err)
	}
	return out, err
}

func (s *generationServiceImpl) invokeText(
	ctx context.Context,
	route provider.Route,
	prompt string,
	systemPrompt string,
	params domain.ResolvedParameters,
) (*outcome, error) {
	g, err := s.router.TextGenerator(route.Provider)
	if err != nil {
		return nil, err
	}

	result, err := g.GenerateText(ctx, generation.TextRequest{
		Model:        route.Model,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Parameters:   params,
	})
	if err != nil {
		return nil, err
	}
	if result == nil || strings.TrimSpace(result.Text) == "" {
		return nil, fmt.Errorf("%w: %s returned an empty completion", generation.ErrEmptyResult, route.Provider)
	}

	return &outcome{
		content:     result.Text,
		contentType: domain.ContentTypeText,
		raw:         result.Raw,
		usage:       result.Usage,
	}, nil
}

func (s *generationServiceImpl) invokeImage(
	ctx context.Context,
	route provider.Route,
	prompt string,
	params domain.ResolvedParameters,
) (*outcome, error) {
	g, err := s.router.ImageGenerator(route.Provider)
	if err != nil {
		return nil, err
	}

	result, err := g.GenerateImage(ctx, generation.ImageRequest{
		Model:      route.Model,
		Prompt:     prompt,
		Width:      params.Width,
		Height:     params.Height,
		Samples:    params.Samples,
		Parameters: params,
	})
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Images) == 0 || result.Images[0].Reference() == "" {
		return nil, fmt.Errorf("%w: %s returned no images", generation.ErrEmptyResult, route.Provider)
	}

	first := result.Images[0]
	contentType := domain.ContentTypeImageURL
	if first.Base64 != "" {
		contentType = domain.ContentTypeImageBase64
	}

	stored := domain.ImageResult{Images: make([]domain.ImageOutput, 0, len(result.Images))}
	for _, img := range result.Images {
		if img.Reference() == "" {
			continue
		}
		stored.Images = append(stored.Images, domain.ImageOutput{Base64: img.Base64, URL: img.URL})
	}
	if len(result.Raw) > 0 && json.Valid(result.Raw) {
		stored.Provider = result.Raw
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image result: %w", err)
	}

	return &outcome{
		content:     first.Reference(),
		contentType: contentType,
		imageCount:  len(stored.Images),
		raw:         raw,
	}, nil
}

func (s *generationServiceImpl) complete(
	gen *domain.Generation,
	route provider.Route,
	classification classifier.Classification,
	out *outcome,
) error {
	metadata, err := json.Marshal(domain.GenerationMetadata{
		Provider:             string(route.Provider),
		Model:                route.Model,
		Category:             string(route.Category),
		SubCategory:          string(route.SubCategory),
		ClassificationSource: string(classification.Source),
		ContentType:          out.contentType,
		ImageCount:           out.imageCount,
		Parameters:           gen.Parameters.WithDefaults(),
		Usage:                out.usage,
	})
	if err != nil {
		return fmt.Errorf("failed to encode generation metadata: %w", err)
	}

	raw := out.raw
	if len(raw) > 0 && !json.Valid(raw) {
		raw, _ = json.Marshal(string(raw))
	}
	return gen.Complete(out.content, raw, metadata)
}

// persistTerminal writes the terminal state and its analytics event in one
// transaction. If the transaction fails, the terminal state alone is
// written, since the record is what the user sees. It returns the tokens
// recorded in the event.
func (s *generationServiceImpl) persistTerminal(
	ctx context.Context,
	gen *domain.Generation,
	providerID provider.ProviderID,
	usage *domain.TokenUsage,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := domain.NewGenerationAnalyticsEvent(gen, string(providerID), usage, s.cost(gen.Model, usage))
	if err != nil {
		log.Error("failed to build analytics event",
			slog.String("generation_id", gen.ID.String()),
			slog.String("error", err.Error()))
		event = nil
	}

	err = s.txRunner.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		if err := stores.Generations.UpdateTerminal(ctx, gen); err != nil {
			return err
		}
		if event == nil {
			return nil
		}
		return stores.Analytics.Create(ctx, event)
	})
	if err == nil {
		if event == nil {
			return 0, nil
		}
		return event.TokensUsed, nil
	}
	if errors.Is(err, store.ErrNotPending) {
		return 0, err
	}

	log.Warn("terminal transaction failed, writing generation state without analytics",
		slog.String("generation_id", gen.ID.String()),
		slog.String("error", redact.Error(err)))
	if err := s.generations.UpdateTerminal(ctx, gen); err != nil {
		return 0, err
	}
	return 0, nil
}

func (s *generationServiceImpl) cost(model string, usage *domain.TokenUsage) decimal.Decimal {
	if usage == nil {
		return decimal.Zero
	}
	price, ok := s.cfg.Pricing[strings.ToLower(model)]
	if !ok {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(usage.Total()))).Div(decimal.NewFromInt(1000))
}

func (s *generationServiceImpl) emitFinished(
	ctx context.Context,
	gen *domain.Generation,
	route provider.Route,
	genErr *GenerationError,
	tokens int,
) {
	payload := events.GenerationFinished{
		GenerationID: gen.ID,
		UserID:       gen.UserID,
		Status:       string(gen.Status),
		Provider:     string(route.Provider),
		Model:        gen.Model,
		Category:     string(route.Category),
		Duration:     gen.Duration(),
		TokensUsed:   tokens,
		Source:       events.SourceRequest,
	}
	if genErr != nil {
		payload.ErrorKind = string(genErr.Kind)
	}

	event, err := events.NewGenerationFinishedEvent(payload)
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit generation event",
			slog.String("generation_id", gen.ID.String()),
			slog.String("error", err.Error()))
	}
}

// GetGenerations implements GenerationService.
func (s *generationServiceImpl) GetGenerations(
	ctx context.Context,
	userID uuid.UUID,
	page, limit int,
) (*GenerationPage, error) {
	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	page = min(page, MaxPage)

	gens, total, err := s.generations.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list generations",
			slog.String("user_id", userID.String()),
			slog.String("error", redact.Error(err)))
		return nil, newGenerationServiceError("list_generations", err)
	}

	return &GenerationPage{
		Generations: gens,
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}

// GetGenerationByID implements GenerationService.
func (s *generationServiceImpl) GetGenerationByID(
	ctx context.Context,
	userID, id uuid.UUID,
) (*domain.Generation, error) {
	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}

	gen, err := s.generations.GetByIDForUser(ctx, id, userID)
	if err != nil {
		if !errors.Is(err, store.ErrGenerationNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to get generation",
				slog.String("generation_id", id.String()),
				slog.String("error", redact.Error(err)))
		}
		return nil, newGenerationServiceError("get_generation", err)
	}
	return gen, nil
}
