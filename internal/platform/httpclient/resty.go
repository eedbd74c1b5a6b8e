// Package httpclient builds the resty clients shared by the HTTP provider adapters.
package httpclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"resty.dev/v3"
)

type startedAtKey struct{}

// NewClient returns a resty client for one provider. Retries are disabled:
// a failed call is reported to the caller, which records it on the generation.
// Every response is logged at debug level with its status and latency.
func NewClient(name, baseURL string, timeout time.Duration, log *slog.Logger) *resty.Client {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http_client"), slog.String("client", name))

	client := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(0).
		SetHeader("User-Agent", "genforge-api")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	client.AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startedAtKey{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(_ *resty.Client, r *resty.Response) error {
		ctx := r.Request.Context()
		started, _ := ctx.Value(startedAtKey{}).(time.Time)
		logger.FromContextOrDefault(ctx, log).DebugContext(ctx, "provider call",
			slog.String("method", r.Request.Method),
			slog.String("url", r.Request.URL),
			slog.Int("status", r.StatusCode()),
			slog.Duration("latency", time.Since(started)))
		return nil
	})

	return client
}
