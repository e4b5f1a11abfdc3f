package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zap-ai/zapai/internal/calendar"
	"github.com/zap-ai/zapai/internal/conversation"
	"github.com/zap-ai/zapai/internal/gateway"
	httpmiddleware "github.com/zap-ai/zapai/internal/http/middleware"
	"github.com/zap-ai/zapai/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	WhatsAppWebhook     *gateway.Handler
	InstagramWebhook    *gateway.InstagramHandler
	ConversationHandler *conversation.Handler
	CalendarHandler     *calendar.Handler
	MetricsHandler      http.Handler
	InternalJWTSecret   string

	// Webhook rate limit, requests/sec per IP. Zero disables limiting.
	WebhookRateLimit float64
	WebhookBurst     int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: provider webhooks and operability.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Route("/webhooks", func(hooks chi.Router) {
			if cfg.WebhookRateLimit > 0 {
				hooks.Use(httpmiddleware.RateLimit(cfg.WebhookRateLimit, cfg.WebhookBurst))
			}
			if cfg.WhatsAppWebhook != nil {
				hooks.Post("/whatsapp", cfg.WhatsAppWebhook.HandleWebhook)
			}
			if cfg.InstagramWebhook != nil {
				hooks.Get("/instagram", cfg.InstagramWebhook.HandleVerify)
				hooks.Post("/instagram", cfg.InstagramWebhook.HandleEvent)
			}
		})
	})

	// Service-to-service endpoints.
	r.Route("/internal", func(internal chi.Router) {
		internal.Use(httpmiddleware.InternalJWT(cfg.InternalJWTSecret))
		if cfg.ConversationHandler != nil {
			internal.Post("/conversations/process", cfg.ConversationHandler.ProcessTurn)
		}
		if cfg.CalendarHandler != nil {
			internal.Post("/calendar/sync", cfg.CalendarHandler.Sync)
		}
	})

	return r
}
