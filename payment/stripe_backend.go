package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"

	"paymentpanel/logger"
	"paymentpanel/models"
	"paymentpanel/record"
)

// StripeBackend implements LinkService by issuing Stripe payment links for stored opportunities
type StripeBackend struct {
	api             stripeAPI
	store           record.Store
	defaultCurrency string
	now             func() time.Time
}

// NewStripeBackend creates a Stripe-backed payment service
func NewStripeBackend(apiKey string, store record.Store, defaultCurrency string) *StripeBackend {
	return newStripeBackend(newStripeClient(apiKey), store, defaultCurrency)
}

func newStripeBackend(api stripeAPI, store record.Store, defaultCurrency string) *StripeBackend {
	return &StripeBackend{
		api:             api,
		store:           store,
		defaultCurrency: strings.ToLower(defaultCurrency),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Generate creates a product, price and payment link for recordID and
// records the link on the opportunity
func (s *StripeBackend) Generate(ctx context.Context, recordID string) (models.LinkResult, error) {
	log := logger.FromContext(ctx).With("record_id", recordID)

	opp, err := s.load(ctx, recordID)
	if err != nil {
		return nil, err
	}

	switch opp.PaymentStatus {
	case models.StatusSent:
		return models.LinkDomainError{Message: ErrMsgAlreadySent}, nil
	case models.StatusPaid:
		return models.LinkDomainError{Message: ErrMsgAlreadyPaid}, nil
	}
	if opp.Amount <= 0 {
		return models.LinkDomainError{Message: ErrMsgInvalidAmount}, nil
	}

	idempotencyKey := uuid.NewString()

	productParams := &stripe.ProductParams{
		Name:        stripe.String(opp.Name),
		Description: stripe.String("Opportunity " + opp.ID),
	}
	productParams.SetIdempotencyKey(idempotencyKey + "-product")
	prod, err := s.api.NewProduct(productParams)
	if err != nil {
		log.Warn("Stripe product creation failed", "error", err)
		return providerFailure(err), nil
	}

	priceParams := &stripe.PriceParams{
		Currency:   stripe.String(s.currency(opp)),
		UnitAmount: stripe.Int64(opp.Amount),
		Product:    stripe.String(prod.ID),
	}
	priceParams.SetIdempotencyKey(idempotencyKey + "-price")
	pr, err := s.api.NewPrice(priceParams)
	if err != nil {
		log.Warn("Stripe price creation failed", "error", err)
		return providerFailure(err), nil
	}

	linkParams := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{
			{
				Price:    stripe.String(pr.ID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"opportunity_id": opp.ID,
		},
	}
	linkParams.SetIdempotencyKey(idempotencyKey + "-link")
	link, err := s.api.NewPaymentLink(linkParams)
	if err != nil {
		log.Warn("Stripe payment link creation failed", "error", err)
		return providerFailure(err), nil
	}

	syncedAt := s.now()
	if err := s.store.UpdatePaymentLink(ctx, opp.ID, record.PaymentLink{
		URL:         link.URL,
		ReferenceID: link.ID,
		Status:      models.StatusSent,
		SyncedAt:    syncedAt,
	}); err != nil {
		return nil, fmt.Errorf("save payment link: %w", err)
	}

	log.Info("Payment link generated", "reference_id", link.ID)
	return models.LinkSuccess{
		PaymentLinkURL: link.URL,
		ReferenceID:    link.ID,
		Status:         models.StatusSent,
		LastSyncAt:     syncedAt,
	}, nil
}

// Refresh reconciles the opportunity's status with its Stripe payment link
func (s *StripeBackend) Refresh(ctx context.Context, recordID string) (models.LinkResult, error) {
	log := logger.FromContext(ctx).With("record_id", recordID)

	opp, err := s.load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if opp.ReferenceID == "" {
		return models.LinkDomainError{Message: ErrMsgNoPaymentLink}, nil
	}

	status := opp.PaymentStatus
	if status != models.StatusPaid {
		status, err = s.remoteStatus(opp.ReferenceID)
		if err != nil {
			log.Warn("Stripe status lookup failed", "reference_id", opp.ReferenceID, "error", err)
			return providerFailure(err), nil
		}
	}

	syncedAt := s.now()
	if err := s.store.UpdatePaymentStatus(ctx, opp.ID, status, syncedAt); err != nil {
		return nil, fmt.Errorf("save payment status: %w", err)
	}

	log.Info("Payment status refreshed", "reference_id", opp.ReferenceID, "status", status)
	return models.LinkSuccess{
		PaymentLinkURL: opp.PaymentLinkURL,
		ReferenceID:    opp.ReferenceID,
		Status:         status,
		LastSyncAt:     syncedAt,
	}, nil
}

// remoteStatus derives the payment status from the link and its checkout sessions
func (s *StripeBackend) remoteStatus(paymentLinkID string) (string, error) {
	sessions, err := s.api.CheckoutSessions(paymentLinkID)
	if err != nil {
		return "", err
	}
	for _, sess := range sessions {
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			return models.StatusPaid, nil
		}
	}

	link, err := s.api.GetPaymentLink(paymentLinkID)
	if err != nil {
		return "", err
	}
	if !link.Active {
		return models.StatusExpired, nil
	}
	return models.StatusSent, nil
}

func (s *StripeBackend) load(ctx context.Context, recordID string) (record.Opportunity, error) {
	opp, err := s.store.GetOpportunity(ctx, recordID)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return record.Opportunity{}, NewNotFoundError()
		}
		return record.Opportunity{}, fmt.Errorf("load opportunity: %w", err)
	}
	return opp, nil
}

func (s *StripeBackend) currency(opp record.Opportunity) string {
	if opp.Currency != "" {
		return opp.Currency
	}
	return s.defaultCurrency
}

func providerFailure(err error) models.LinkDomainError {
	return models.LinkDomainError{Message: fmt.Sprintf(ErrMsgProviderFailed, MessageFromError(err))}
}
