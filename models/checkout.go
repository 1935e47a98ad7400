package models

import "time"

// MaxLineQuantity caps one cart line, after repeated references are merged.
const MaxLineQuantity = 1000

// CartItem is one requested line: a provider price reference and a quantity.
type CartItem struct {
	ID       string `json:"id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0,max=1000"`
}

type CartSnapshotItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceRef    string `json:"price_ref"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

// CartSnapshot is the cart as it was at checkout time. It is never modified after capture.
type CartSnapshot struct {
	Items      []CartSnapshotItem `json:"items"`
	Currency   string             `json:"currency"`
	CapturedAt time.Time          `json:"captured_at"`
}

func (s CartSnapshot) ExpectedTotal() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// CheckoutSession correlates a provider checkout with the user and cart that started it.
type CheckoutSession struct {
	ID                 string
	ProviderCustomerID string
	ProviderSessionID  string
	UserID             int64
	Snapshot           CartSnapshot
	Status             SessionStatus
	CreatedAt          time.Time
	ExpiresAt          time.Time
	ConsumedAt         *time.Time
}

// PaidWithin reports whether a payment made at paidAt falls inside the session's TTL.
func (s *CheckoutSession) PaidWithin(paidAt time.Time) bool {
	return !paidAt.After(s.ExpiresAt)
}
