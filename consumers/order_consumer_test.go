package consumers

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type mockExpirer struct {
	ExpireFunc func(ctx context.Context, sessionID string) (bool, error)
	calls      []string
}

func (m *mockExpirer) ExpireSession(ctx context.Context, sessionID string) (bool, error) {
	m.calls = append(m.calls, sessionID)
	return m.ExpireFunc(ctx, sessionID)
}

func TestProcessOrderMessage(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		redelivered bool
		expireErr   error
		want        ackOutcome
		wantCalls   int
	}{
		{"order created", `{"type":"order_created","order_id":"ord-1"}`, false, nil, ack, 0},
		{"session expiry", `{"type":"session_expiry","session_id":"chk-1"}`, false, nil, ack, 1},
		{"expiry fails once", `{"type":"session_expiry","session_id":"chk-1"}`, false, errors.New("db down"), requeue, 1},
		{"expiry fails again", `{"type":"session_expiry","session_id":"chk-1"}`, true, errors.New("db down"), reject, 1},
		{"expiry without id", `{"type":"session_expiry"}`, false, nil, reject, 0},
		{"unknown type", `{"type":"status_updated"}`, false, nil, reject, 0},
		{"not json", `42|created`, false, nil, reject, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expirer := &mockExpirer{ExpireFunc: func(context.Context, string) (bool, error) {
				return tt.expireErr == nil, tt.expireErr
			}}
			oc := NewOrderConsumer(expirer)

			got := oc.processOrderMessage(context.Background(), amqp.Delivery{
				Body:        []byte(tt.body),
				Redelivered: tt.redelivered,
			})

			assert.Equal(t, tt.want, got)
			assert.Len(t, expirer.calls, tt.wantCalls)
		})
	}
}
