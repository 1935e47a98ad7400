package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"checkout-service/config"
	"checkout-service/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Orders at or above this total (minor units) are published with high priority.
const highPriorityTotal = 100000

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config

	// amqp channels are not safe for concurrent publishing.
	mu      sync.Mutex
	delayed bool
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
	}, nil
}

func (r *RabbitMQ) SetupQueues() error {
	deadLetterExchange := r.Cfg.DeadLetterQueue + "_exchange"

	if err := r.Channel.ExchangeDeclare(deadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead letter exchange: %w", err)
	}
	if _, err := r.Channel.QueueDeclare(r.Cfg.DeadLetterQueue, true, false, false, false,
		amqp.Table{"x-queue-type": "classic"}); err != nil {
		return fmt.Errorf("declare dead letter queue: %w", err)
	}
	if err := r.Channel.QueueBind(r.Cfg.DeadLetterQueue, r.Cfg.DeadLetterQueue, deadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind dead letter queue: %w", err)
	}

	if err := r.Channel.ExchangeDeclare(r.Cfg.OrderExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare order exchange: %w", err)
	}
	if _, err := r.Channel.QueueDeclare(r.Cfg.OrderQueue, true, false, false, false, amqp.Table{
		"x-max-priority":            r.Cfg.MaxPriority,
		"x-dead-letter-exchange":    deadLetterExchange,
		"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := r.Channel.QueueBind(r.Cfg.OrderQueue, "", r.Cfg.OrderExchange, false, nil); err != nil {
		return fmt.Errorf("bind order queue: %w", err)
	}

	r.delayed = r.setupDelayExchange()
	return nil
}

// setupDelayExchange declares the delayed-message exchange over a separate connection:
// the broker answers an unknown exchange type by closing the whole connection. Without
// the plugin, expiry messages are skipped and the periodic sweeper covers stale
// sessions alone.
func (r *RabbitMQ) setupDelayExchange() bool {
	probeConn, err := amqp.Dial(r.Cfg.RabbitMQURL)
	if err != nil {
		log.Printf("Warning: cannot connect to probe delayed exchange: %v", err)
		return false
	}
	defer probeConn.Close()

	probe, err := probeConn.Channel()
	if err != nil {
		log.Printf("Warning: cannot open channel for delayed exchange: %v", err)
		return false
	}
	if err := probe.ExchangeDeclare(r.Cfg.DelayExchange, "x-delayed-message", true, false, false, false,
		amqp.Table{"x-delayed-type": "direct"}); err != nil {
		log.Printf("Warning: Delayed exchange not supported: %v", err)
		return false
	}

	if err := r.Channel.QueueBind(r.Cfg.OrderQueue, "", r.Cfg.DelayExchange, false, nil); err != nil {
		log.Printf("Warning: cannot bind order queue to delayed exchange: %v", err)
		return false
	}
	return true
}

func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return r.publish(ctx, r.Cfg.OrderExchange, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Type:         event.Type,
		MessageId:    event.OrderID,
		Body:         body,
		Priority:     orderPriority(event.Total),
	})
}

// PublishSessionExpiry schedules a check of the session after delay.
func (r *RabbitMQ) PublishSessionExpiry(ctx context.Context, sessionID string, delay time.Duration) error {
	if !r.delayed {
		return nil
	}
	body, err := json.Marshal(models.OrderEvent{
		Type:      models.EventSessionExpiry,
		SessionID: sessionID,
		Occurred:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal session expiry: %w", err)
	}
	return r.publish(ctx, r.Cfg.DelayExchange, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Type:         models.EventSessionExpiry,
		MessageId:    sessionID,
		Body:         body,
		Headers: amqp.Table{
			"x-delay": delay.Milliseconds(),
		},
	})
}

func (r *RabbitMQ) publish(ctx context.Context, exchange string, msg amqp.Publishing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Channel.PublishWithContext(ctx, exchange, "", false, false, msg)
}

func orderPriority(total int64) uint8 {
	if total >= highPriorityTotal {
		return 9
	}
	return 5
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			log.Printf("Failed to close RabbitMQ channel: %v", err)
		}
	}
	if r.Conn != nil {
		if err := r.Conn.Close(); err != nil {
			log.Printf("Failed to close RabbitMQ connection: %v", err)
		}
	}
}
