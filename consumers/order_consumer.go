package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"checkout-service/config"
	"checkout-service/logging"
	"checkout-service/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

type SessionExpirer interface {
	ExpireSession(ctx context.Context, sessionID string) (bool, error)
}

type OrderConsumer struct {
	expirer SessionExpirer
}

func NewOrderConsumer(expirer SessionExpirer) *OrderConsumer {
	return &OrderConsumer{expirer: expirer}
}

// Start consumes the order queue and the dead letter queue until ctx is cancelled or
// the channel closes.
func (oc *OrderConsumer) Start(ctx context.Context, ch *amqp.Channel, cfg *config.Config) error {
	msgs, err := ch.Consume(cfg.OrderQueue, "checkout-service", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register order consumer: %w", err)
	}
	dlqMsgs, err := ch.Consume(cfg.DeadLetterQueue, "checkout-service-dlq", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register dead letter consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				oc.settle(msg, oc.processOrderMessage(ctx, msg))
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-dlqMsgs:
				if !ok {
					return
				}
				processDeadLetterMessage(msg)
			}
		}
	}()
	return nil
}

type ackOutcome int

const (
	ack ackOutcome = iota
	requeue
	reject
)

func (oc *OrderConsumer) processOrderMessage(ctx context.Context, msg amqp.Delivery) (outcome ackOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in message processing: %v", r)
			outcome = reject
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Invalid message format: %s", msg.Body)
		return reject
	}

	switch event.Type {
	case models.EventOrderCreated:
		logging.Log(logging.Fields{
			OrderID:   event.OrderID,
			SessionID: event.SessionID,
			UserID:    event.UserID,
			Step:      "fulfillment",
			Status:    "handed_off",
		})
		return ack
	case models.EventSessionExpiry:
		if event.SessionID == "" {
			log.Printf("Session expiry without session id: %s", msg.Body)
			return reject
		}
		if _, err := oc.expirer.ExpireSession(ctx, event.SessionID); err != nil {
			log.Printf("Failed to expire session %s: %v", event.SessionID, err)
			if msg.Redelivered {
				return reject
			}
			return requeue
		}
		return ack
	default:
		log.Printf("Unknown event type: %s", event.Type)
		return reject
	}
}

func (oc *OrderConsumer) settle(msg amqp.Delivery, outcome ackOutcome) {
	var err error
	switch outcome {
	case ack:
		err = msg.Ack(false)
	case requeue:
		err = msg.Nack(false, true)
	default:
		// Not requeued: the queue dead-letters it.
		err = msg.Nack(false, false)
	}
	if err != nil {
		log.Printf("Failed to settle message: %v", err)
	}
}

func processDeadLetterMessage(msg amqp.Delivery) {
	log.Printf("Received dead letter: type=%s id=%s body=%s", msg.Type, msg.MessageId, msg.Body)
	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack dead letter: %v", err)
	}
}
