package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/univera/campuschat/internal/api"
	"github.com/univera/campuschat/internal/api/handlers"
	"github.com/univera/campuschat/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
	MaxBodyBytes    int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 16 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
		r.Post("/{id}/reprocess", cfg.DocumentHandler.Reprocess)
	})

	r.Get("/stats", cfg.DocumentHandler.Stats)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/session", cfg.ChatHandler.StartSession)
		r.Post("/session/{id}/message", cfg.ChatHandler.SendMessage)
		r.Get("/session/{id}/messages", cfg.ChatHandler.GetHistory)
	})

	return r
}
