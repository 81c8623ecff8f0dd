package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paymentpanel/metrics"
)

// RouterConfig collects the handlers mounted by NewRouter. Backend and
// Webhook are optional and their routes are only registered when set.
type RouterConfig struct {
	Slack         *SlackHandler
	Panels        *PanelHandlers
	Opportunities *OpportunityHandlers
	Backend       *BackendHandlers
	Webhook       *StripeWebhookHandler
}

// NewRouter wires all HTTP routes
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", HandleHealthz())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.Slack != nil {
		r.Post("/slack/commands", cfg.Slack.HandleSlackCommands)
		r.Post("/slack/interactions", cfg.Slack.HandleSlackInteractions)
	}
	if cfg.Webhook != nil {
		r.Post("/stripe/webhook", cfg.Webhook.HandleWebhook)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Opportunities != nil {
			r.Post("/opportunities", cfg.Opportunities.HandleCreateOpportunity)
			r.Get("/opportunities/{id}", cfg.Opportunities.HandleGetOpportunity)
		}
		if cfg.Backend != nil {
			r.Post("/opportunities/{id}/payment-link", cfg.Backend.HandleGeneratePaymentLink)
			r.Post("/opportunities/{id}/payment-status", cfg.Backend.HandleRefreshPaymentStatus)
		}
		if cfg.Panels != nil {
			r.Get("/panels/{id}", cfg.Panels.HandleGetPanel)
			r.Post("/panels/{id}/generate", cfg.Panels.HandleGenerate)
			r.Post("/panels/{id}/refresh", cfg.Panels.HandleRefresh)
			r.Delete("/panels/{id}", cfg.Panels.HandleUnmount)
		}
	})

	return r
}
