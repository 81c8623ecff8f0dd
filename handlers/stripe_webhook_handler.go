package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"paymentpanel/logger"
	"paymentpanel/models"
	"paymentpanel/record"
)

// recordNotifier announces that a record changed outside of a panel
type recordNotifier interface {
	NotifyRecordChanged(ctx context.Context, recordID string)
}

// StripeWebhookHandler marks opportunities paid when their payment link checkout completes
type StripeWebhookHandler struct {
	endpointSecret string
	store          record.Store
	notifier       recordNotifier
	now            func() time.Time
}

// NewStripeWebhookHandler creates a new Stripe webhook handler
func NewStripeWebhookHandler(endpointSecret string, store record.Store, notifier recordNotifier) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		endpointSecret: endpointSecret,
		store:          store,
		notifier:       notifier,
		now:            time.Now,
	}
}

// HandleWebhook processes incoming Stripe webhook events
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	const MaxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warn("Error reading webhook payload", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.endpointSecret)
	if err != nil {
		log.Warn("Error verifying webhook signature", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		if err := h.handleCheckoutSession(r.Context(), event); err != nil {
			log.Error("Error handling checkout session", "event_id", event.ID, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		log.Debug("Unhandled event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// handleCheckoutSession records a paid checkout against the opportunity that owns the link
func (h *StripeWebhookHandler) handleCheckoutSession(ctx context.Context, event stripe.Event) error {
	log := logger.FromContext(ctx)

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Warn("Error parsing checkout session", "event_id", event.ID, "error", err)
		return nil
	}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Info("Checkout session not paid yet", "session_id", session.ID, "payment_status", session.PaymentStatus)
		return nil
	}
	if session.PaymentLink == nil || session.PaymentLink.ID == "" {
		log.Debug("Checkout session without payment link", "session_id", session.ID)
		return nil
	}

	opp, err := h.store.FindByReference(ctx, session.PaymentLink.ID)
	if errors.Is(err, record.ErrNotFound) {
		log.Info("No opportunity for payment link", "payment_link", session.PaymentLink.ID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := h.store.UpdatePaymentStatus(ctx, opp.ID, models.StatusPaid, h.now().UTC()); err != nil {
		return err
	}
	h.notifier.NotifyRecordChanged(ctx, opp.ID)

	log.Info("Opportunity marked paid", "record_id", opp.ID, "session_id", session.ID)
	return nil
}
