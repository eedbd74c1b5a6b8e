package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/genforge-api/internal/classifier"
	"github.com/phrazzld/genforge-api/internal/config"
	"github.com/phrazzld/genforge-api/internal/events"
	"github.com/phrazzld/genforge-api/internal/generation"
	"github.com/phrazzld/genforge-api/internal/platform/anthropic"
	"github.com/phrazzld/genforge-api/internal/platform/gemini"
	"github.com/phrazzld/genforge-api/internal/platform/metrics"
	"github.com/phrazzld/genforge-api/internal/platform/openai"
	"github.com/phrazzld/genforge-api/internal/platform/postgres"
	"github.com/phrazzld/genforge-api/internal/platform/replicate"
	"github.com/phrazzld/genforge-api/internal/platform/stability"
	"github.com/phrazzld/genforge-api/internal/provider"
	"github.com/phrazzld/genforge-api/internal/service"
	"github.com/phrazzld/genforge-api/internal/service/auth"
	"github.com/phrazzld/genforge-api/internal/store"
	"github.com/phrazzld/genforge-api/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds the shared dependencies of the server so they can be
// wired once and cleaned up together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService        auth.JWTService
	generationService service.GenerationService
	reconciler        *task.Reconciler

	registry *prometheus.Registry
	recorder *metrics.Recorder
}

// newApplication wires stores, provider adapters, routing, the orchestrator
// and the stale-generation reconciler on top of an open database.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.registry, app.recorder = newMetrics(logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(app.recorder)

	adapters, openaiClient, err := buildAdapters(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	router, err := buildRegistry(cfg.Generation, adapters)
	if err != nil {
		return nil, err
	}
	promptClassifier := buildClassifier(cfg.Generation, openaiClient, logger)

	generations := postgres.NewPostgresGenerationStore(db, logger)
	analytics := postgres.NewPostgresAnalyticsStore(db, logger)
	templates := postgres.NewPostgresTemplateStore(db, logger)
	datasets := postgres.NewPostgresDatasetStore(db, logger)
	txRunner := postgres.NewTxRunner(db, generations, analytics)

	app.generationService, err = newGenerationService(cfg.Generation, generations, txRunner, templates, datasets,
		router, promptClassifier, emitter, logger)
	if err != nil {
		return nil, err
	}

	app.reconciler = task.NewReconciler(generations, txRunner, emitter, task.ReconcilerConfig{
		StaleAfter: cfg.Generation.StalePendingAfter,
		Interval:   cfg.Generation.ReconcileInterval,
		BatchSize:  cfg.Generation.ReconcileBatchSize,
	}, logger)

	logger.Info("application initialized",
		slog.String("default_model", cfg.Generation.DefaultModel),
		slog.Bool("remote_classification", cfg.Generation.RemoteClassification))
	return app, nil
}

// newMetrics returns a registry carrying the Go and process collectors plus
// the generation recorder.
func newMetrics(logger *slog.Logger) (*prometheus.Registry, *metrics.Recorder) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewRecorder(reg, logger)
}

// buildAdapters constructs one adapter per provider. Adapters without
// credentials are still bound; calls on them fail as configuration errors.
func buildAdapters(ctx context.Context, cfg *config.Config, logger *slog.Logger) (provider.Adapters, *openai.Client, error) {
	timeout := cfg.Generation.ProviderTimeout

	openaiClient := openai.NewClient(cfg.Providers.OpenAI, logger)
	geminiGenerator, err := gemini.NewGenerator(ctx, logger, cfg.Providers.Gemini)
	if err != nil {
		return provider.Adapters{}, nil, fmt.Errorf("failed to initialize gemini adapter: %w", err)
	}
	anthropicClient := anthropic.NewClient(cfg.Providers.Anthropic, timeout, logger)
	stabilityClient := stability.NewClient(cfg.Providers.Stability, timeout, logger)
	replicateClient := replicate.NewClient(cfg.Providers.Replicate, timeout, logger)

	adapters := provider.Adapters{
		Text: map[provider.ProviderID]generation.TextGenerator{
			provider.OpenAI:    openaiClient,
			provider.Anthropic: anthropicClient,
			provider.Gemini:    geminiGenerator,
		},
		Image: map[provider.ProviderID]generation.ImageGenerator{
			provider.OpenAI:    openaiClient,
			provider.Stability: stabilityClient,
			provider.Replicate: replicateClient,
		},
	}
	return adapters, openaiClient, nil
}

// buildRegistry loads the capability table, from disk when a path is
// configured, and validates it against the adapters.
func buildRegistry(cfg config.GenerationConfig, adapters provider.Adapters) (*provider.Registry, error) {
	table := provider.DefaultTable()
	if cfg.CapabilityTablePath != "" {
		loaded, err := provider.LoadTable(cfg.CapabilityTablePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load capability table: %w", err)
		}
		table = loaded
	}

	registry, err := provider.New(table, adapters)
	if err != nil {
		return nil, fmt.Errorf("invalid capability table: %w", err)
	}
	return registry, nil
}

// buildClassifier enables the remote refinement pass only when it is
// switched on and OpenAI has credentials.
func buildClassifier(cfg config.GenerationConfig, openaiClient *openai.Client, logger *slog.Logger) *classifier.Classifier {
	var refiner classifier.Refiner
	if cfg.RemoteClassification {
		if openaiClient != nil && openaiClient.Configured() {
			refiner = openaiClient
		} else {
			logger.Warn("remote classification enabled but openai is not configured; using keywords only")
		}
	}
	return classifier.New(refiner, cfg.ClassifierTimeout, logger)
}

func newGenerationService(
	cfg config.GenerationConfig,
	generations store.GenerationStore,
	txRunner store.TxRunner,
	templates store.TemplateStore,
	datasets store.DatasetStore,
	router service.Router,
	promptClassifier service.PromptClassifier,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (service.GenerationService, error) {
	pricing, err := service.ParsePricing(cfg.Pricing)
	if err != nil {
		return nil, fmt.Errorf("invalid pricing configuration: %w", err)
	}

	svc, err := service.NewGenerationService(generations, txRunner, templates, datasets, router, promptClassifier, emitter,
		service.GenerationServiceConfig{
			DefaultModel:        cfg.DefaultModel,
			DefaultSystemPrompt: cfg.DefaultSystemPrompt,
			ProviderTimeout:     cfg.ProviderTimeout,
			Pricing:             pricing,
		}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}
	return svc, nil
}

// Run starts the reconciler and serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if err := app.reconciler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reconciler: %w", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work and closes the database.
func (app *application) cleanup() {
	if app.reconciler != nil {
		app.reconciler.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
