package router

import (
	"minimart/internal/handler"
	"minimart/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a debug router.
type Config struct {
	Handler      *handler.Handler
	StatsHandler *handler.StatsHandler
}

// New creates and configures the debug HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
		}

		// Stats are only wired on the backing services; the gateways
		// hold no state worth reporting.
		if cfg.StatsHandler != nil {
			r.Get("/stats", cfg.StatsHandler.GetStats)
		}
	})

	return r
}
