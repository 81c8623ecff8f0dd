package payment

import (
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/paymentlink"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/product"
)

// sessionListLimit bounds how many checkout sessions a status refresh inspects
const sessionListLimit = 20

// stripeAPI is the subset of the Stripe API the backend calls
type stripeAPI interface {
	NewProduct(params *stripe.ProductParams) (*stripe.Product, error)
	NewPrice(params *stripe.PriceParams) (*stripe.Price, error)
	NewPaymentLink(params *stripe.PaymentLinkParams) (*stripe.PaymentLink, error)
	GetPaymentLink(id string) (*stripe.PaymentLink, error)
	CheckoutSessions(paymentLinkID string) ([]*stripe.CheckoutSession, error)
}

// stripeClient calls the live Stripe API through the package-level resource clients
type stripeClient struct{}

func newStripeClient(apiKey string) stripeAPI {
	stripe.Key = apiKey
	return stripeClient{}
}

func (stripeClient) NewProduct(params *stripe.ProductParams) (*stripe.Product, error) {
	return product.New(params)
}

func (stripeClient) NewPrice(params *stripe.PriceParams) (*stripe.Price, error) {
	return price.New(params)
}

func (stripeClient) NewPaymentLink(params *stripe.PaymentLinkParams) (*stripe.PaymentLink, error) {
	return paymentlink.New(params)
}

func (stripeClient) GetPaymentLink(id string) (*stripe.PaymentLink, error) {
	return paymentlink.Get(id, &stripe.PaymentLinkParams{})
}

func (stripeClient) CheckoutSessions(paymentLinkID string) ([]*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentLink: stripe.String(paymentLinkID),
	}
	params.Limit = stripe.Int64(sessionListLimit)

	var sessions []*stripe.CheckoutSession
	iter := session.List(params)
	for iter.Next() {
		sessions = append(sessions, iter.CheckoutSession())
		if len(sessions) >= sessionListLimit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
