package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenworks/briefbase/internal/api"
	"github.com/lumenworks/briefbase/internal/api/handlers"
	"github.com/lumenworks/briefbase/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	QueryHandler    *handlers.QueryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Tenant)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Register)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})

		r.Post("/query", cfg.QueryHandler.Query)
	})

	return r
}
