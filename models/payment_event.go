package models

import (
	"encoding/json"
	"time"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// PaymentEvent is a provider notification whose signature has already been verified.
type PaymentEvent struct {
	ProviderEventID    string
	Type               string
	CreatedAt          time.Time
	ProviderSessionID  string
	ProviderCustomerID string
	PaymentIntentID    string
	AmountSubtotal     int64
	AmountTotal        int64
	Currency           string
	ShippingDetails    json.RawMessage
	PaymentStatus      string
}
