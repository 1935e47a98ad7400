package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// Stripe only accepts checkout expirations between 30 minutes and 24 hours out.
const (
	minSessionLifetime = 30 * time.Minute
	maxSessionLifetime = 24 * time.Hour
)

type StripeConfig struct {
	SecretKey         string
	SuccessURL        string
	CancelURL         string
	Currency          string
	ShippingCountries []string
}

type StripeProvider struct {
	api *client.API
	cfg StripeConfig
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	// Retries are owned by Resilient; the library's own network retries stay off so
	// attempts are not multiplied.
	apiBackend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
	})
	return newStripeProvider(cfg, apiBackend)
}

func newStripeProvider(cfg StripeConfig, apiBackend stripe.Backend) *StripeProvider {
	backends := &stripe.Backends{
		API:     apiBackend,
		Connect: stripe.GetBackend(stripe.ConnectBackend),
		Uploads: stripe.GetBackend(stripe.UploadsBackend),
	}
	return &StripeProvider{
		api: client.New(cfg.SecretKey, backends),
		cfg: cfg,
	}
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, in CustomerParams) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.SetIdempotencyKey("customer-" + in.CheckoutID)
	params.AddMetadata("userId", strconv.FormatInt(in.UserID, 10))
	params.AddMetadata("checkoutId", in.CheckoutID)

	customer, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return customer.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in SessionParams) (*ProviderSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(item.PriceRef),
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer:           stripe.String(in.CustomerID),
		ClientReferenceID:  stripe.String(in.CheckoutID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(p.cfg.SuccessURL),
		CancelURL:          stripe.String(p.cfg.CancelURL),
		ExpiresAt:          stripe.Int64(in.ExpiresAt.Unix()),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(p.cfg.ShippingCountries),
		},
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{
			p.shippingOption("Free shipping", 0, 5, 7),
			p.shippingOption("Next day air", 1500, 1, 1),
		},
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("session-" + in.CheckoutID)
	params.AddMetadata("checkoutId", in.CheckoutID)
	params.AddMetadata("userId", strconv.FormatInt(in.UserID, 10))

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	expiresAt := in.ExpiresAt
	if session.ExpiresAt > 0 {
		expiresAt = time.Unix(session.ExpiresAt, 0)
	}
	return &ProviderSession{ID: session.ID, URL: session.URL, ExpiresAt: expiresAt.UTC()}, nil
}

func (p *StripeProvider) shippingOption(name string, amount int64, minDays, maxDays int64) *stripe.CheckoutSessionShippingOptionParams {
	return &stripe.CheckoutSessionShippingOptionParams{
		ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
			Type:        stripe.String("fixed_amount"),
			DisplayName: stripe.String(name),
			FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
				Amount:   stripe.Int64(amount),
				Currency: stripe.String(p.cfg.Currency),
			},
			DeliveryEstimate: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
				Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
					Unit:  stripe.String("business_day"),
					Value: stripe.Int64(minDays),
				},
				Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
					Unit:  stripe.String("business_day"),
					Value: stripe.Int64(maxDays),
				},
			},
		},
	}
}

// ClampExpiry moves want into the window of expirations Stripe accepts from now. It is
// applied once per checkout so retried requests stay identical.
func ClampExpiry(now, want time.Time) time.Time {
	// A small margin keeps the request valid after network latency.
	earliest := now.Add(minSessionLifetime + time.Minute)
	latest := now.Add(maxSessionLifetime - time.Minute)
	switch {
	case want.Before(earliest):
		return earliest
	case want.After(latest):
		return latest
	default:
		return want
	}
}
