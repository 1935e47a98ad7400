package services

import (
	"context"
	"errors"

	"checkout-service/apperrors"
	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/repository"
)

type Outcome string

const (
	OutcomeMaterialized Outcome = "materialized"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeUnresolved   Outcome = "unresolved"
	OutcomeAbandoned    Outcome = "abandoned"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeFailed       Outcome = "failed"
	OutcomeRejected     Outcome = "rejected"
)

type EventVerifier interface {
	Verify(payload []byte, signature string) (models.PaymentEvent, error)
}

type WebhookService struct {
	verifier     EventVerifier
	sessions     repository.SessionRepository
	orders       repository.OrderRepository
	materializer *OrderService
}

func NewWebhookService(
	verifier EventVerifier,
	sessions repository.SessionRepository,
	orders repository.OrderRepository,
	materializer *OrderService,
) *WebhookService {
	return &WebhookService{
		verifier:     verifier,
		sessions:     sessions,
		orders:       orders,
		materializer: materializer,
	}
}

// HandleEvent verifies and processes one provider delivery. The only error it returns
// is a signature failure; every other problem is logged and reported through the
// Outcome so the provider does not redeliver forever.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			logging.Log(logging.Fields{Step: "verify", Status: string(OutcomeRejected), Message: err.Error()})
			return OutcomeRejected, err
		}
		s.record(event, nil, OutcomeFailed, err.Error())
		return OutcomeFailed, nil
	}

	switch event.Type {
	case models.EventCheckoutCompleted:
		return s.handleCompleted(ctx, event), nil
	case models.EventCheckoutExpired:
		return s.handleExpired(ctx, event), nil
	default:
		s.record(event, nil, OutcomeIgnored, event.Type)
		return OutcomeIgnored, nil
	}
}

func (s *WebhookService) handleCompleted(ctx context.Context, event models.PaymentEvent) Outcome {
	exists, err := s.orders.ExistsForEvent(ctx, event.ProviderEventID, event.PaymentIntentID)
	if err != nil {
		return s.record(event, nil, OutcomeFailed, err.Error())
	}
	if exists {
		return s.record(event, nil, OutcomeDuplicate, "order already exists")
	}

	session, outcome := s.resolveSession(ctx, event)
	if session == nil {
		return outcome
	}

	switch session.Status {
	case models.SessionCompleted:
		return s.record(event, session, OutcomeDuplicate, "session already consumed")
	case models.SessionAbandoned:
		return s.record(event, session, OutcomeAbandoned, "session was abandoned")
	}

	if !session.PaidWithin(event.CreatedAt) {
		if _, err := s.sessions.MarkAbandoned(ctx, session.ID); err != nil {
			return s.record(event, session, OutcomeFailed, err.Error())
		}
		return s.record(event, session, OutcomeAbandoned, "payment arrived after session expiry")
	}

	order, err := s.materializer.Materialize(ctx, session, event)
	switch {
	case err == nil:
		logging.Log(logging.Fields{
			EventID:   event.ProviderEventID,
			SessionID: session.ID,
			OrderID:   order.ID,
			UserID:    order.UserID,
			Step:      "webhook",
			Status:    string(OutcomeMaterialized),
		})
		return OutcomeMaterialized
	case errors.Is(err, apperrors.ErrDuplicateOrder):
		return s.record(event, session, OutcomeDuplicate, "concurrent delivery")
	case errors.Is(err, repository.ErrSessionNotPending):
		return s.sessionRaceOutcome(ctx, event, session)
	default:
		return s.record(event, session, OutcomeFailed, err.Error())
	}
}

func (s *WebhookService) handleExpired(ctx context.Context, event models.PaymentEvent) Outcome {
	session, outcome := s.resolveSession(ctx, event)
	if session == nil {
		return outcome
	}
	changed, err := s.sessions.MarkAbandoned(ctx, session.ID)
	if err != nil {
		return s.record(event, session, OutcomeFailed, err.Error())
	}
	if !changed {
		return s.record(event, session, OutcomeIgnored, "session not pending")
	}
	return s.record(event, session, OutcomeAbandoned, "provider session expired")
}

// resolveSession finds the checkout by provider session id. Events without a session id
// fall back to the provider customer, which is unique per checkout.
func (s *WebhookService) resolveSession(ctx context.Context, event models.PaymentEvent) (*models.CheckoutSession, Outcome) {
	var (
		session *models.CheckoutSession
		err     error
	)
	switch {
	case event.ProviderSessionID != "":
		session, err = s.sessions.FindByProviderSession(ctx, event.ProviderSessionID)
	case event.ProviderCustomerID != "":
		session, err = s.sessions.FindByProviderCustomer(ctx, event.ProviderCustomerID)
	default:
		err = repository.ErrSessionNotFound
	}
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, s.record(event, nil, OutcomeUnresolved, "no checkout session for event")
	}
	if err != nil {
		return nil, s.record(event, nil, OutcomeFailed, err.Error())
	}
	return session, ""
}

// sessionRaceOutcome classifies a materialization that lost the race for the session.
func (s *WebhookService) sessionRaceOutcome(ctx context.Context, event models.PaymentEvent, session *models.CheckoutSession) Outcome {
	current, err := s.sessions.FindByID(ctx, session.ID)
	if err == nil && current.Status == models.SessionAbandoned {
		return s.record(event, session, OutcomeAbandoned, "session abandoned concurrently")
	}
	return s.record(event, session, OutcomeDuplicate, "session consumed concurrently")
}

func (s *WebhookService) record(event models.PaymentEvent, session *models.CheckoutSession, outcome Outcome, message string) Outcome {
	fields := logging.Fields{
		EventID: event.ProviderEventID,
		Step:    "webhook",
		Status:  string(outcome),
		Message: message,
	}
	if session != nil {
		fields.SessionID = session.ID
		fields.UserID = session.UserID
	}
	logging.Log(fields)
	return outcome
}
