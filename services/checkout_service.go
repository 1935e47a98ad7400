package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"checkout-service/apperrors"
	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/payment"
	"checkout-service/repository"

	"github.com/google/uuid"
)

type CheckoutConfig struct {
	Currency         string
	SessionTTL       time.Duration
	RedeliveryWindow time.Duration
}

type CheckoutService struct {
	catalog   repository.CatalogRepository
	sessions  repository.SessionRepository
	provider  payment.Provider
	publisher EventPublisher
	cfg       CheckoutConfig
	now       func() time.Time
}

func NewCheckoutService(
	catalog repository.CatalogRepository,
	sessions repository.SessionRepository,
	provider payment.Provider,
	publisher EventPublisher,
	cfg CheckoutConfig,
) *CheckoutService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &CheckoutService{
		catalog:   catalog,
		sessions:  sessions,
		provider:  provider,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// InitiateCheckout opens a hosted provider checkout for the cart and records the
// session server side so the later payment event can be reconciled against it. It
// returns the provider's redirect URL.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, userID int64, items []models.CartItem) (string, error) {
	if userID <= 0 {
		return "", apperrors.New(apperrors.ErrUnauthorized, "User not authenticated")
	}
	lines, err := mergeCartItems(items)
	if err != nil {
		return "", err
	}

	snapshot, err := s.captureSnapshot(ctx, lines)
	if err != nil {
		return "", err
	}

	checkoutID := uuid.NewString()
	createdAt := s.now().UTC()
	requestedExpiry := payment.ClampExpiry(createdAt, createdAt.Add(s.cfg.SessionTTL))

	customerID, err := s.provider.CreateCustomer(ctx, payment.CustomerParams{
		UserID:     userID,
		CheckoutID: checkoutID,
	})
	if err != nil {
		return "", err
	}

	lineItems := make([]payment.LineItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		lineItems = append(lineItems, payment.LineItem{PriceRef: item.PriceRef, Quantity: item.Quantity})
	}
	providerSession, err := s.provider.CreateCheckoutSession(ctx, payment.SessionParams{
		CheckoutID: checkoutID,
		CustomerID: customerID,
		UserID:     userID,
		LineItems:  lineItems,
		ExpiresAt:  requestedExpiry,
	})
	if err != nil {
		return "", err
	}

	expiresAt := providerSession.ExpiresAt.UTC()
	if expiresAt.IsZero() {
		expiresAt = requestedExpiry
	}
	session := &models.CheckoutSession{
		ID:                 checkoutID,
		ProviderCustomerID: customerID,
		ProviderSessionID:  providerSession.ID,
		UserID:             userID,
		Snapshot:           snapshot,
		Status:             models.SessionPending,
		CreatedAt:          createdAt,
		ExpiresAt:          expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("persist checkout session: %w", err)
	}

	delay := expiresAt.Sub(createdAt) + s.cfg.RedeliveryWindow
	if err := s.publisher.PublishSessionExpiry(ctx, session.ID, delay); err != nil {
		log.Printf("Failed to publish session expiry for %s: %v", session.ID, err)
	}

	logging.Log(logging.Fields{
		SessionID: session.ID,
		UserID:    userID,
		Step:      "checkout",
		Status:    "session_created",
		Message:   providerSession.ID,
	})
	return providerSession.URL, nil
}

// mergeCartItems validates the requested lines and folds repeated price references into
// one line, keeping first-seen order.
func mergeCartItems(items []models.CartItem) ([]models.CartItem, error) {
	if len(items) == 0 {
		return nil, apperrors.Validation("Cart is empty")
	}

	merged := make([]models.CartItem, 0, len(items))
	index := make(map[string]int, len(items))
	for i, item := range items {
		ref := strings.TrimSpace(item.ID)
		if ref == "" {
			return nil, apperrors.Validation(fmt.Sprintf("Item %d has no price reference", i))
		}
		if item.Quantity <= 0 {
			return nil, apperrors.Validation(fmt.Sprintf("Item %s must have a positive quantity", ref))
		}
		if item.Quantity > models.MaxLineQuantity {
			return nil, apperrors.Validation(fmt.Sprintf("Item %s exceeds the quantity limit of %d", ref, models.MaxLineQuantity))
		}
		if at, ok := index[ref]; ok {
			if merged[at].Quantity > models.MaxLineQuantity-item.Quantity {
				return nil, apperrors.Validation(fmt.Sprintf("Item %s exceeds the quantity limit of %d", ref, models.MaxLineQuantity))
			}
			merged[at].Quantity += item.Quantity
			continue
		}
		index[ref] = len(merged)
		merged = append(merged, models.CartItem{ID: ref, Quantity: item.Quantity})
	}
	return merged, nil
}

func (s *CheckoutService) captureSnapshot(ctx context.Context, lines []models.CartItem) (models.CartSnapshot, error) {
	refs := make([]string, 0, len(lines))
	for _, line := range lines {
		refs = append(refs, line.ID)
	}
	products, err := s.catalog.FindByPriceRefs(ctx, refs)
	if err != nil {
		return models.CartSnapshot{}, fmt.Errorf("look up catalog: %w", err)
	}

	snapshot := models.CartSnapshot{
		Items:      make([]models.CartSnapshotItem, 0, len(lines)),
		Currency:   s.cfg.Currency,
		CapturedAt: s.now().UTC(),
	}
	for _, line := range lines {
		product, ok := products[line.ID]
		if !ok {
			return models.CartSnapshot{}, apperrors.Validation(fmt.Sprintf("Unknown price reference %s", line.ID))
		}
		if product.Currency != "" && !strings.EqualFold(product.Currency, s.cfg.Currency) {
			return models.CartSnapshot{}, apperrors.Validation(fmt.Sprintf("Price %s is not in %s", line.ID, s.cfg.Currency))
		}
		snapshot.Items = append(snapshot.Items, models.CartSnapshotItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			PriceRef:    product.PriceRef,
			UnitPrice:   product.UnitPrice,
			Quantity:    line.Quantity,
		})
	}
	return snapshot, nil
}
