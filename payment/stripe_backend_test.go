package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"paymentpanel/models"
	"paymentpanel/record"
)

type MockStripeAPI struct {
	mock.Mock
}

func (m *MockStripeAPI) NewProduct(params *stripe.ProductParams) (*stripe.Product, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Product), args.Error(1)
}

func (m *MockStripeAPI) NewPrice(params *stripe.PriceParams) (*stripe.Price, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Price), args.Error(1)
}

func (m *MockStripeAPI) NewPaymentLink(params *stripe.PaymentLinkParams) (*stripe.PaymentLink, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentLink), args.Error(1)
}

func (m *MockStripeAPI) GetPaymentLink(id string) (*stripe.PaymentLink, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentLink), args.Error(1)
}

func (m *MockStripeAPI) CheckoutSessions(paymentLinkID string) ([]*stripe.CheckoutSession, error) {
	args := m.Called(paymentLinkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stripe.CheckoutSession), args.Error(1)
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func setupStripeBackend(t *testing.T, opps ...record.Opportunity) (*StripeBackend, *MockStripeAPI, *record.MemoryStore) {
	t.Helper()
	store := record.NewMemoryStore()
	for _, opp := range opps {
		require.NoError(t, store.CreateOpportunity(context.Background(), opp))
	}
	api := new(MockStripeAPI)
	backend := newStripeBackend(api, store, "usd")
	backend.now = func() time.Time { return fixedNow }
	return backend, api, store
}

func TestStripeBackend_GenerateSuccess(t *testing.T) {
	backend, api, store := setupStripeBackend(t, record.Opportunity{ID: "opp-1", Name: "Acme renewal", Amount: 125000, Currency: "eur"})

	api.On("NewProduct", mock.MatchedBy(func(p *stripe.ProductParams) bool {
		return *p.Name == "Acme renewal" && p.IdempotencyKey != nil
	})).Return(&stripe.Product{ID: "prod_1"}, nil)
	api.On("NewPrice", mock.MatchedBy(func(p *stripe.PriceParams) bool {
		return *p.Product == "prod_1" && *p.UnitAmount == 125000 && *p.Currency == "eur"
	})).Return(&stripe.Price{ID: "price_1"}, nil)
	api.On("NewPaymentLink", mock.MatchedBy(func(p *stripe.PaymentLinkParams) bool {
		return *p.LineItems[0].Price == "price_1" && p.Metadata["opportunity_id"] == "opp-1"
	})).Return(&stripe.PaymentLink{ID: "plink_1", URL: "https://buy.stripe.com/abc"}, nil)

	result, err := backend.Generate(context.Background(), "opp-1")
	require.NoError(t, err)
	assert.Equal(t, models.LinkSuccess{
		PaymentLinkURL: "https://buy.stripe.com/abc",
		ReferenceID:    "plink_1",
		Status:         models.StatusSent,
		LastSyncAt:     fixedNow,
	}, result)

	opp, err := store.GetOpportunity(context.Background(), "opp-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, opp.PaymentStatus)
	assert.Equal(t, "plink_1", opp.ReferenceID)
	api.AssertExpectations(t)
}

func TestStripeBackend_GenerateRejectsTerminalAndInvalid(t *testing.T) {
	backend, api, _ := setupStripeBackend(t,
		record.Opportunity{ID: "sent", Name: "A", Amount: 100, Currency: "usd", PaymentStatus: models.StatusSent},
		record.Opportunity{ID: "paid", Name: "B", Amount: 100, Currency: "usd", PaymentStatus: models.StatusPaid},
		record.Opportunity{ID: "zero", Name: "C", Amount: 0, Currency: "usd"},
	)

	tests := []struct {
		id   string
		want string
	}{
		{"sent", ErrMsgAlreadySent},
		{"paid", ErrMsgAlreadyPaid},
		{"zero", ErrMsgInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			result, err := backend.Generate(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, models.LinkDomainError{Message: tt.want}, result)
		})
	}
	api.AssertNotCalled(t, "NewProduct", mock.Anything)
}

func TestStripeBackend_GenerateProviderErrorIsDomainFailure(t *testing.T) {
	backend, api, store := setupStripeBackend(t, record.Opportunity{ID: "opp-1", Name: "Acme", Amount: 100, Currency: "usd"})
	api.On("NewProduct", mock.Anything).Return(nil, &stripe.Error{Msg: "Invalid API Key provided"})

	result, err := backend.Generate(context.Background(), "opp-1")
	require.NoError(t, err)
	assert.Equal(t, models.LinkDomainError{Message: "Payment provider error: Invalid API Key provided"}, result)

	opp, _ := store.GetOpportunity(context.Background(), "opp-1")
	assert.Empty(t, opp.PaymentLinkURL)
}

func TestStripeBackend_MissingRecordIsTransportFailure(t *testing.T) {
	backend, _, _ := setupStripeBackend(t)

	_, err := backend.Generate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, ErrMsgOpportunityNotFound, MessageFromError(err))

	_, err = backend.Refresh(context.Background(), "missing")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 404, te.StatusCode)
}

func TestStripeBackend_RefreshWithoutLink(t *testing.T) {
	backend, _, _ := setupStripeBackend(t, record.Opportunity{ID: "opp-1", Name: "Acme", Amount: 100, Currency: "usd"})

	result, err := backend.Refresh(context.Background(), "opp-1")
	require.NoError(t, err)
	assert.Equal(t, models.LinkDomainError{Message: ErrMsgNoPaymentLink}, result)
}

func TestStripeBackend_RefreshStatuses(t *testing.T) {
	tests := []struct {
		name     string
		sessions []*stripe.CheckoutSession
		active   bool
		want     string
	}{
		{"paid session", []*stripe.CheckoutSession{{PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid}, {PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid}}, true, models.StatusPaid},
		{"open link", nil, true, models.StatusSent},
		{"deactivated link", []*stripe.CheckoutSession{}, false, models.StatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, api, store := setupStripeBackend(t, record.Opportunity{ID: "opp-1", Name: "Acme", Amount: 100, Currency: "usd"})
			require.NoError(t, store.UpdatePaymentLink(context.Background(), "opp-1", record.PaymentLink{
				URL: "https://buy.stripe.com/abc", ReferenceID: "plink_1", Status: models.StatusSent, SyncedAt: fixedNow.Add(-time.Hour),
			}))

			api.On("CheckoutSessions", "plink_1").Return(tt.sessions, nil)
			api.On("GetPaymentLink", "plink_1").Return(&stripe.PaymentLink{ID: "plink_1", Active: tt.active}, nil).Maybe()

			result, err := backend.Refresh(context.Background(), "opp-1")
			require.NoError(t, err)
			assert.Equal(t, models.LinkSuccess{
				PaymentLinkURL: "https://buy.stripe.com/abc",
				ReferenceID:    "plink_1",
				Status:         tt.want,
				LastSyncAt:     fixedNow,
			}, result)

			opp, _ := store.GetOpportunity(context.Background(), "opp-1")
			assert.Equal(t, tt.want, opp.PaymentStatus)
		})
	}
}

func TestStripeBackend_RefreshKeepsPaidWithoutCallingStripe(t *testing.T) {
	backend, api, store := setupStripeBackend(t, record.Opportunity{ID: "opp-1", Name: "Acme", Amount: 100, Currency: "usd"})
	require.NoError(t, store.UpdatePaymentLink(context.Background(), "opp-1", record.PaymentLink{
		URL: "https://buy.stripe.com/abc", ReferenceID: "plink_1", Status: models.StatusPaid,
	}))

	result, err := backend.Refresh(context.Background(), "opp-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, result.(models.LinkSuccess).Status)
	api.AssertNotCalled(t, "CheckoutSessions", mock.Anything)
}
