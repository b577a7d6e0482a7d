package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/a2ui-playground/internal/debugbus"
	"github.com/capitalize-ai/a2ui-playground/internal/middleware"
	"github.com/capitalize-ai/a2ui-playground/internal/service"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
)

// RouterConfig carries everything the HTTP API is built from.
type RouterConfig struct {
	Store         Pinger
	Conversations *service.ConversationService
	Chat          *service.ChatService
	Settings      *service.SettingsService
	Probe         ProbeRunner
	Hub           *debugbus.Hub
	Logger        *logger.Logger

	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the chi router for the API server.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger

	healthHandler := NewHealthHandler(cfg.Store, cfg.Hub)
	conversationHandler := NewConversationHandler(cfg.Conversations, log)
	messageHandler := NewMessageHandler(cfg.Chat, cfg.Settings, log)
	configHandler := NewConfigHandler(cfg.Settings, cfg.Probe, log)
	streamHandler := NewStreamHandler(cfg.Conversations, cfg.Hub, log)
	wsHandler := NewWebSocketHandler(cfg.Hub, nil, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", wsHandler.Serve)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Get("/config", configHandler.Get)
		r.Put("/config", configHandler.Update)
		r.Post("/probe", configHandler.Probe)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)
				r.Get("/events", conversationHandler.Events)
				r.Get("/view", conversationHandler.View)
				r.Post("/clear", conversationHandler.Clear)
				r.Put("/model", messageHandler.ChangeModel)
				r.Get("/stream", streamHandler.Stream)

				r.Group(func(r chi.Router) {
					if cfg.RateLimitRequests > 0 {
						r.Use(middleware.ConversationRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
					}
					r.Post("/messages", messageHandler.Send)
				})
			})
		})
	})

	return r
}
