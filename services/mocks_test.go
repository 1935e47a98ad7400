package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"checkout-service/apperrors"
	"checkout-service/models"
	"checkout-service/payment"
	"checkout-service/repository"
)

type mockCatalog struct {
	products map[string]models.Product
	err      error
}

func (m *mockCatalog) FindByPriceRefs(ctx context.Context, refs []string) (map[string]models.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]models.Product)
	for _, ref := range refs {
		if p, ok := m.products[ref]; ok {
			out[ref] = p
		}
	}
	return out, nil
}

// memoryStore backs both the session and order mocks so Materialize can flip the
// session atomically, like the MySQL transaction does.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.CheckoutSession
	orders   []models.Order

	createSessionErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]models.CheckoutSession)}
}

type mockSessions struct{ store *memoryStore }

func (m mockSessions) Create(ctx context.Context, s *models.CheckoutSession) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.createSessionErr != nil {
		return m.store.createSessionErr
	}
	m.store.sessions[s.ID] = *s
	return nil
}

func (m mockSessions) FindByID(ctx context.Context, id string) (*models.CheckoutSession, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	s, ok := m.store.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &s, nil
}

func (m mockSessions) FindByProviderSession(ctx context.Context, providerSessionID string) (*models.CheckoutSession, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, s := range m.store.sessions {
		if s.ProviderSessionID == providerSessionID {
			return &s, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (m mockSessions) FindByProviderCustomer(ctx context.Context, providerCustomerID string) (*models.CheckoutSession, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, s := range m.store.sessions {
		if s.ProviderCustomerID == providerCustomerID {
			return &s, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (m mockSessions) MarkAbandoned(ctx context.Context, id string) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	s, ok := m.store.sessions[id]
	if !ok || s.Status != models.SessionPending {
		return false, nil
	}
	s.Status = models.SessionAbandoned
	m.store.sessions[id] = s
	return true, nil
}

func (m mockSessions) AbandonStale(ctx context.Context, cutoff time.Time) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var n int64
	for id, s := range m.store.sessions {
		if s.Status == models.SessionPending && s.ExpiresAt.Before(cutoff) {
			s.Status = models.SessionAbandoned
			m.store.sessions[id] = s
			n++
		}
	}
	return n, nil
}

type mockOrders struct {
	store *memoryStore
	// existsMiss makes ExistsForEvent always report false so the storage backstop is hit.
	existsMiss bool
}

func (m mockOrders) ExistsForEvent(ctx context.Context, eventID, intentID string) (bool, error) {
	if m.existsMiss {
		return false, nil
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, o := range m.store.orders {
		if o.ProviderEventID == eventID || (intentID != "" && o.PaymentIntentID == intentID) {
			return true, nil
		}
	}
	return false, nil
}

func (m mockOrders) Materialize(ctx context.Context, order *models.Order, sessionID string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, o := range m.store.orders {
		if o.ProviderEventID == order.ProviderEventID ||
			o.ProviderSessionID == order.ProviderSessionID ||
			(order.PaymentIntentID != "" && o.PaymentIntentID == order.PaymentIntentID) {
			return apperrors.Wrap(apperrors.ErrDuplicateOrder, "order already exists", errors.New("duplicate key"))
		}
	}
	s, ok := m.store.sessions[sessionID]
	if !ok || s.Status != models.SessionPending {
		return repository.ErrSessionNotPending
	}
	now := time.Now()
	s.Status = models.SessionCompleted
	s.ConsumedAt = &now
	m.store.sessions[sessionID] = s
	m.store.orders = append(m.store.orders, *order)
	return nil
}

func (m mockOrders) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []models.Order
	for _, o := range m.store.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m mockOrders) FindByID(ctx context.Context, userID int64, orderID string) (*models.Order, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, o := range m.store.orders {
		if o.ID == orderID && o.UserID == userID {
			return &o, nil
		}
	}
	return nil, apperrors.NotFound("Order not found")
}

func (m *memoryStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type mockProvider struct {
	mu           sync.Mutex
	customerErr  error
	sessionErr   error
	sessions     []payment.SessionParams
	sessionCount int
}

func (m *mockProvider) CreateCustomer(ctx context.Context, params payment.CustomerParams) (string, error) {
	if m.customerErr != nil {
		return "", m.customerErr
	}
	return "cus_" + params.CheckoutID[:8], nil
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, params payment.SessionParams) (*payment.ProviderSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	m.sessions = append(m.sessions, params)
	m.sessionCount++
	id := "cs_test_" + params.CheckoutID[:8]
	return &payment.ProviderSession{
		ID:        id,
		URL:       "https://checkout.stripe.com/c/pay/" + id,
		ExpiresAt: params.ExpiresAt,
	}, nil
}

type mockPublisher struct {
	mu       sync.Mutex
	orders   []models.OrderEvent
	expiries map[string]time.Duration
	err      error
}

func (m *mockPublisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, event)
	return m.err
}

func (m *mockPublisher) PublishSessionExpiry(ctx context.Context, sessionID string, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expiries == nil {
		m.expiries = make(map[string]time.Duration)
	}
	m.expiries[sessionID] = delay
	return m.err
}

// mockVerifier accepts payloads whose signature equals the configured secret and
// returns the event registered for the payload.
type mockVerifier struct {
	secret string
	events map[string]models.PaymentEvent
}

func (m *mockVerifier) Verify(payload []byte, signature string) (models.PaymentEvent, error) {
	if signature != m.secret {
		return models.PaymentEvent{}, apperrors.New(apperrors.ErrUnauthorized, "Webhook signature verification failed")
	}
	event, ok := m.events[string(payload)]
	if !ok {
		return models.PaymentEvent{}, apperrors.Validation("Webhook event data is malformed")
	}
	return event, nil
}

type mockUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (m *mockUsers) Create(ctx context.Context, email, hash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = make(map[string]models.User)
	}
	if _, ok := m.users[email]; ok {
		return nil, repository.ErrDuplicateEmail
	}
	u := models.User{ID: int64(len(m.users) + 1), Email: email, PasswordHash: hash}
	m.users[email] = u
	return &u, nil
}

func (m *mockUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}
