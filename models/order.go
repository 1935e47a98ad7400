package models

import (
	"encoding/json"
	"time"
)

type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryProcessing DeliveryStatus = "processing"
	DeliveryShipped    DeliveryStatus = "shipped"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryCancelled  DeliveryStatus = "cancelled"
)

// Order is a paid checkout. Money amounts are in the currency's minor unit and come
// from the payment provider, not from the cart.
type Order struct {
	ID                 string          `json:"id"`
	UserID             int64           `json:"userId"`
	ProviderCustomerID string          `json:"providerCustomerId"`
	ProviderSessionID  string          `json:"providerSessionId"`
	ProviderEventID    string          `json:"-"`
	PaymentIntentID    string          `json:"paymentIntentId"`
	Items              []OrderItem     `json:"items"`
	Subtotal           int64           `json:"subtotal"`
	Total              int64           `json:"total"`
	Currency           string          `json:"currency"`
	Shipping           json.RawMessage `json:"shipping,omitempty"`
	DeliveryStatus     DeliveryStatus  `json:"deliveryStatus"`
	PaymentStatus      string          `json:"paymentStatus"`
	Timestamp          time.Time       `json:"timestamp"`
}

type OrderItem struct {
	ProductID       int64  `json:"productId"`
	ProductName     string `json:"productName"`
	ProductPrice    int64  `json:"productPrice"`
	ProductQuantity int    `json:"productQuantity"`
}

// OrderEvent is published once an order has been materialized.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	Total     int64     `json:"total,omitempty"`
	Occurred  time.Time `json:"occurred"`
}

const (
	EventOrderCreated  = "order_created"
	EventSessionExpiry = "session_expiry"
)
