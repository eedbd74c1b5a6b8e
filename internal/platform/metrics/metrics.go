// Package metrics exposes Prometheus instruments for generations and HTTP
// traffic. The Recorder subscribes to generation lifecycle events, so the
// orchestrator never imports Prometheus directly.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/genforge-api/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "genforge"
	subsystem = "api"
)

// Recorder owns every instrument. Instruments are registered on the
// registerer passed to NewRecorder.
type Recorder struct {
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	tokensTotal        *prometheus.CounterVec
	providerErrors     *prometheus.CounterVec
	abandonedTotal     prometheus.Counter
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec

	logger *slog.Logger
}

var _ events.EventHandler = (*Recorder)(nil)

// NewRecorder creates the instruments on reg.
func NewRecorder(reg prometheus.Registerer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	factory := promauto.With(reg)

	return &Recorder{
		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "generations_total",
				Help:      "Generations that reached a terminal state",
			},
			[]string{"provider", "category", "status"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "generation_duration_seconds",
				Help:      "Time from PENDING to terminal state",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "category"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tokens_total",
				Help:      "Tokens reported by providers",
			},
			[]string{"provider", "model"},
		),
		providerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "provider_errors_total",
				Help:      "Failed generations by provider and error kind",
			},
			[]string{"provider", "error_kind"},
		),
		abandonedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "generations_abandoned_total",
				Help:      "PENDING generations failed by the reconciliation sweep",
			},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		),
		logger: logger.With(slog.String("component", "metrics")),
	}
}

// HandleEvent implements events.EventHandler.
func (r *Recorder) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeGenerationFinished {
		return nil
	}

	var payload events.GenerationFinished
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}

	provider := labelOrUnknown(payload.Provider)
	category := labelOrUnknown(payload.Category)

	r.generationsTotal.WithLabelValues(provider, category, payload.Status).Inc()
	if payload.Duration > 0 {
		r.generationDuration.WithLabelValues(provider, category).Observe(payload.Duration.Seconds())
	}
	if payload.TokensUsed > 0 {
		r.tokensTotal.WithLabelValues(provider, payload.Model).Add(float64(payload.TokensUsed))
	}
	if payload.ErrorKind != "" {
		r.providerErrors.WithLabelValues(provider, payload.ErrorKind).Inc()
	}
	if payload.Source == events.SourceReconciler {
		r.abandonedTotal.Inc()
	}
	return nil
}

// Middleware records request count and latency, labelled by the matched
// chi route pattern rather than the raw path.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		r.requestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
		r.requestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
