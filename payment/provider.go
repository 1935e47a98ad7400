// Package payment adapts the external payment provider: hosted checkout sessions on
// the way out, signed webhook events on the way in.
package payment

import (
	"context"
	"time"
)

type CustomerParams struct {
	UserID     int64
	CheckoutID string
}

type LineItem struct {
	PriceRef string
	Quantity int
}

// SessionParams describes one hosted checkout. ExpiresAt must already be inside the
// provider's accepted window (see ClampExpiry).
type SessionParams struct {
	CheckoutID string
	CustomerID string
	UserID     int64
	LineItems  []LineItem
	ExpiresAt  time.Time
}

// ProviderSession is a created hosted checkout. ExpiresAt is the expiry the provider
// actually accepted, which may differ from the requested one.
type ProviderSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// Provider is the subset of the payment provider API the checkout flow needs.
type Provider interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*ProviderSession, error)
}
