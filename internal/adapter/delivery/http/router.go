// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/short-links/docs"
	"github.com/vadimbarashkov/short-links/internal/validation"
	"github.com/vadimbarashkov/short-links/pkg/middleware/recoverer"
)

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
// defaultValidity is used for shorten requests that omit validity_minutes.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, defaultValidity int) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	h := newURLHandler(urlUseCase, validation.New(), defaultValidity)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(docs.SwaggerYAML)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/urls", func(r chi.Router) {
			r.Post("/", h.shortenURL)
			r.Get("/", h.listURLs)
			r.Delete("/{id}", h.deleteURL)
			r.Get("/{shortCode}/resolve", h.resolveShortCode)
		})

		r.Get("/stats", h.getStats)
	})

	r.Get("/{shortCode}", h.redirect)

	return r
}
