package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/events"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"github.com/phrazzld/genforge-api/internal/redact"
	"github.com/phrazzld/genforge-api/internal/store"
	"github.com/shopspring/decimal"
)

// AbandonedMessage is the failure recorded on a generation closed by the sweep.
const AbandonedMessage = "generation abandoned: no terminal state recorded"

// ReconcilerConfig holds configuration for the reconciliation sweep
type ReconcilerConfig struct {
	// StaleAfter is how long a generation may stay PENDING before it is
	// considered abandoned. config.Validate ensures it exceeds the longest
	// time a live request can spend PENDING.
	StaleAfter time.Duration

	// Interval defines how often to sweep.
	// If zero, defaults to 5 minutes
	Interval time.Duration

	// BatchSize caps how many records one sweep closes.
	BatchSize int
}

// DefaultReconcilerConfig returns a ReconcilerConfig with reasonable defaults
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		StaleAfter: 15 * time.Minute,
		Interval:   5 * time.Minute,
		BatchSize:  100,
	}
}

// Reconciler periodically fails stale PENDING generations.
type Reconciler struct {
	generations store.GenerationStore
	txRunner    store.TxRunner
	emitter     events.EventEmitter
	config      ReconcilerConfig
	now         func() time.Time
	logger      *slog.Logger

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewReconciler creates a new Reconciler. A nil emitter discards events.
func NewReconciler(
	generations store.GenerationStore,
	txRunner store.TxRunner,
	emitter events.EventEmitter,
	config ReconcilerConfig,
	logger *slog.Logger,
) *Reconciler {
	defaults := DefaultReconcilerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = defaults.StaleAfter
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		generations: generations,
		txRunner:    txRunner,
		emitter:     emitter,
		config:      config,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With(slog.String("component", "generation_reconciler")),
	}
}

// Start runs one sweep immediately to recover from a previous crash, then
// keeps sweeping on the configured interval until Stop is called.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelFunc != nil {
		return errors.New("reconciler already started")
	}

	if _, err := r.RunOnce(ctx); err != nil {
		return fmt.Errorf("initial reconciliation failed: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancelFunc = cancel
	r.wg.Add(1)
	go r.loop(loopCtx)
	return nil
}

// Stop ends the sweep loop and waits for an in-flight sweep to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel := r.cancelFunc
	r.cancelFunc = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("reconciliation sweep failed", slog.String("error", redact.Error(err)))
			}
		}
	}
}

// RunOnce fails up to BatchSize stale PENDING generations and returns how
// many it closed. A record finished concurrently by its own request is
// skipped.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	cutoff := r.now().Add(-r.config.StaleAfter)
	stale, err := r.generations.FindStalePending(ctx, cutoff, r.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale generations: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	log.Info("found stale pending generations", slog.Int("count", len(stale)))

	closed := 0
	for _, gen := range stale {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		if err := r.abandon(ctx, gen); err != nil {
			if errors.Is(err, store.ErrNotPending) {
				log.Debug("generation finished before it could be reconciled",
					slog.String("generation_id", gen.ID.String()))
				continue
			}
			log.Error("failed to close stale generation",
				slog.String("generation_id", gen.ID.String()),
				slog.String("error", redact.Error(err)))
			continue
		}
		closed++
	}

	if closed > 0 {
		log.Info("closed abandoned generations", slog.Int("count", closed))
	}
	return closed, nil
}

func (r *Reconciler) abandon(ctx context.Context, gen *domain.Generation) error {
	if err := gen.Fail(AbandonedMessage); err != nil {
		return err
	}

	event, err := domain.NewGenerationAnalyticsEvent(gen, "", nil, decimal.Zero)
	if err != nil {
		return err
	}

	err = r.txRunner.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		if err := stores.Generations.UpdateTerminal(ctx, gen); err != nil {
			return err
		}
		return stores.Analytics.Create(ctx, event)
	})
	if err != nil {
		return err
	}

	finished, err := events.NewGenerationFinishedEvent(events.GenerationFinished{
		GenerationID: gen.ID,
		UserID:       gen.UserID,
		Status:       string(gen.Status),
		Model:        gen.Model,
		Duration:     gen.Duration(),
		Source:       events.SourceReconciler,
	})
	if err == nil {
		err = r.emitter.EmitEvent(ctx, finished)
	}
	if err != nil {
		r.logger.Warn("failed to emit reconciliation event",
			slog.String("generation_id", gen.ID.String()),
			slog.String("error", err.Error()))
	}
	return nil
}
