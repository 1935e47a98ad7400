package repository

import (
	"context"
	"errors"
	"time"

	"checkout-service/models"
)

var (
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrSessionNotPending = errors.New("checkout session is no longer pending")
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already registered")
)

type CatalogRepository interface {
	// FindByPriceRefs returns the products keyed by price reference. Unknown
	// references are simply absent from the result.
	FindByPriceRefs(ctx context.Context, refs []string) (map[string]models.Product, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.CheckoutSession) error
	FindByID(ctx context.Context, id string) (*models.CheckoutSession, error)
	FindByProviderSession(ctx context.Context, providerSessionID string) (*models.CheckoutSession, error)
	// FindByProviderCustomer returns the most recent session for a provider customer.
	FindByProviderCustomer(ctx context.Context, providerCustomerID string) (*models.CheckoutSession, error)
	// MarkAbandoned moves a pending session to abandoned. It reports whether a row changed.
	MarkAbandoned(ctx context.Context, id string) (bool, error)
	// AbandonStale abandons every pending session that expired before cutoff.
	AbandonStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type OrderRepository interface {
	ExistsForEvent(ctx context.Context, providerEventID, paymentIntentID string) (bool, error)
	// Materialize inserts the order and its items and consumes the session in one
	// transaction. Unique-key violations surface as apperrors.ErrDuplicateOrder.
	Materialize(ctx context.Context, order *models.Order, sessionID string) error
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
	FindByID(ctx context.Context, userID int64, orderID string) (*models.Order, error)
}

type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}
