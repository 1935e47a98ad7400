// Package services holds the checkout reconciliation flow: session initiation, webhook
// handling, order materialization, accounts, and stale-session cleanup.
package services

import (
	"context"
	"time"

	"checkout-service/models"
)

// EventPublisher hands events to the message broker. Publishing is best effort: callers
// log failures and carry on.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
	PublishSessionExpiry(ctx context.Context, sessionID string, delay time.Duration) error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, models.OrderEvent) error { return nil }

func (NopPublisher) PublishSessionExpiry(context.Context, string, time.Duration) error { return nil }
