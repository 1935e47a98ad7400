package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/apperrors"
	"checkout-service/models"

	"github.com/stripe/stripe-go/v79/webhook"
)

// WebhookVerifier authenticates inbound provider events against the shared endpoint
// secret. There is no unverified mode.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is required")
	}
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}, nil
}

// Verify checks the signature header and decodes the event. Checkout session data is
// only decoded for checkout event types; other events carry just their id and type.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (models.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return models.PaymentEvent{}, apperrors.Wrap(apperrors.ErrUnauthorized, "Webhook signature verification failed", err)
	}

	out := models.PaymentEvent{
		ProviderEventID: event.ID,
		Type:            string(event.Type),
		CreatedAt:       time.Unix(event.Created, 0).UTC(),
	}
	if out.Type != models.EventCheckoutCompleted && out.Type != models.EventCheckoutExpired {
		return out, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, apperrors.Validation("Webhook event has no data")
	}

	var session checkoutSessionObject
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return out, apperrors.Wrap(apperrors.ErrValidation, "Webhook event data is malformed", err)
	}

	out.ProviderSessionID = session.ID
	out.ProviderCustomerID = string(session.Customer)
	out.PaymentIntentID = string(session.PaymentIntent)
	out.AmountSubtotal = session.AmountSubtotal
	out.AmountTotal = session.AmountTotal
	out.Currency = session.Currency
	out.PaymentStatus = session.PaymentStatus
	out.ShippingDetails = session.shipping()
	return out, nil
}

type checkoutSessionObject struct {
	ID                   string          `json:"id"`
	Customer             expandableID    `json:"customer"`
	PaymentIntent        expandableID    `json:"payment_intent"`
	AmountSubtotal       int64           `json:"amount_subtotal"`
	AmountTotal          int64           `json:"amount_total"`
	Currency             string          `json:"currency"`
	PaymentStatus        string          `json:"payment_status"`
	ShippingDetails      json.RawMessage `json:"shipping_details"`
	CollectedInformation *struct {
		ShippingDetails json.RawMessage `json:"shipping_details"`
	} `json:"collected_information"`
}

// shipping prefers the top-level field and falls back to the newer
// collected_information location.
func (s checkoutSessionObject) shipping() json.RawMessage {
	if !isNullJSON(s.ShippingDetails) {
		return s.ShippingDetails
	}
	if s.CollectedInformation != nil && !isNullJSON(s.CollectedInformation.ShippingDetails) {
		return s.CollectedInformation.ShippingDetails
	}
	return nil
}

// expandableID decodes a reference that is either a bare id or an expanded object.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	if isNullJSON(data) {
		*e = ""
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*e = expandableID(id)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("expandable field: %w", err)
	}
	*e = expandableID(obj.ID)
	return nil
}

func isNullJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
