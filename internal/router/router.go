package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"chat-relay/internal/handlers"
	"chat-relay/internal/metrics"
	"chat-relay/internal/middleware"
)

func New(
	logger *logrus.Entry,
	healthHandler *handlers.HealthHandler,
	chatHandler *handlers.ChatHandler,
	allowedOrigins []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(metrics.Middleware)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)
		r.Post("/chat", chatHandler.Relay)
	})

	return r
}
