package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
)

// OrderService is the only writer of order rows.
type OrderService struct {
	orders    repository.OrderRepository
	publisher EventPublisher
	now       func() time.Time
}

func NewOrderService(orders repository.OrderRepository, publisher EventPublisher) *OrderService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &OrderService{orders: orders, publisher: publisher, now: time.Now}
}

// Materialize turns a verified completion event and its checkout session into one
// order. Line items come from the snapshot; money comes from the event. A concurrent
// or repeated delivery fails with apperrors.ErrDuplicateOrder.
func (s *OrderService) Materialize(ctx context.Context, session *models.CheckoutSession, event models.PaymentEvent) (*models.Order, error) {
	items := make([]models.OrderItem, 0, len(session.Snapshot.Items))
	for _, line := range session.Snapshot.Items {
		items = append(items, models.OrderItem{
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			ProductPrice:    line.UnitPrice,
			ProductQuantity: line.Quantity,
		})
	}

	currency := event.Currency
	if currency == "" {
		currency = session.Snapshot.Currency
	}

	order := &models.Order{
		ID:                 uuid.NewString(),
		UserID:             session.UserID,
		ProviderCustomerID: session.ProviderCustomerID,
		ProviderSessionID:  session.ProviderSessionID,
		ProviderEventID:    event.ProviderEventID,
		PaymentIntentID:    event.PaymentIntentID,
		Items:              items,
		Subtotal:           event.AmountSubtotal,
		Total:              event.AmountTotal,
		Currency:           currency,
		Shipping:           event.ShippingDetails,
		DeliveryStatus:     models.DeliveryPending,
		PaymentStatus:      event.PaymentStatus,
		Timestamp:          s.now().UTC(),
	}

	if expected := session.Snapshot.ExpectedTotal(); expected != event.AmountSubtotal {
		logging.Log(logging.Fields{
			EventID:   event.ProviderEventID,
			SessionID: session.ID,
			OrderID:   order.ID,
			Step:      "materialize",
			Status:    "amount_mismatch",
			Message:   fmt.Sprintf("cart subtotal %d, charged subtotal %d", expected, event.AmountSubtotal),
		})
	}

	if err := s.orders.Materialize(ctx, order, session.ID); err != nil {
		return nil, err
	}

	if err := s.publisher.PublishOrderEvent(ctx, models.OrderEvent{
		Type:      models.EventOrderCreated,
		OrderID:   order.ID,
		SessionID: session.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Occurred:  order.Timestamp,
	}); err != nil {
		log.Printf("Failed to publish order created event for %s: %v", order.ID, err)
	}
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID int64, orderID string) (*models.Order, error) {
	return s.orders.FindByID(ctx, userID, orderID)
}
