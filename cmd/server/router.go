package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/genforge-api/internal/api"
	apiMiddleware "github.com/phrazzld/genforge-api/internal/api/middleware"
	"github.com/phrazzld/genforge-api/internal/platform/metrics"
)

// setupRouter builds the HTTP routes of the service.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	generationHandler := api.NewGenerationHandler(app.generationService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Use(app.recorder.Middleware)
		r.Use(authMiddleware.Authenticate)

		r.Post("/generations", generationHandler.CreateGeneration)
		r.Get("/generations", generationHandler.ListGenerations)
		r.Get("/generations/{id}", generationHandler.GetGeneration)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response")
		}
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(app.registry))

	return r
}
