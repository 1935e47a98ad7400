package payment

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"checkout-service/apperrors"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v79"
)

type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Resilient wraps a Provider with bounded retries and a circuit breaker. Every failure
// it returns is an apperrors.ErrUpstreamProvider.
type Resilient struct {
	next    Provider
	retry   RetryConfig
	breaker *gobreaker.CircuitBreaker[any]
	observe func(operation string, err error)
}

func NewResilient(next Provider, retry RetryConfig, observe func(operation string, err error)) *Resilient {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.MaxBackoff <= 0 {
		retry.MaxBackoff = 5 * time.Second
	}
	if observe == nil {
		observe = func(string, error) {}
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "payment-provider",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Rejections caused by the request itself say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Resilient{
		next:    next,
		retry:   retry,
		breaker: breaker,
		observe: observe,
	}
}

func (r *Resilient) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	out, err := r.do(ctx, "create_customer", func() (any, error) {
		return r.next.CreateCustomer(ctx, params)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (r *Resilient) CreateCheckoutSession(ctx context.Context, params SessionParams) (*ProviderSession, error) {
	out, err := r.do(ctx, "create_checkout_session", func() (any, error) {
		return r.next.CreateCheckoutSession(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return out.(*ProviderSession), nil
}

func (r *Resilient) do(ctx context.Context, operation string, call func() (any, error)) (any, error) {
	var out any
	attempt := func() error {
		res, err := r.breaker.Execute(call)
		r.observe(operation, err)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(r.newBackOff(), uint64(r.retry.MaxAttempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		log.Printf("payment provider %s failed, retrying in %s: %v", operation, wait, err)
	}

	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		return nil, apperrors.Upstream("Payment provider unavailable, please retry", err)
	}
	return out, nil
}

// newBackOff doubles the wait per attempt with up to 50% jitter either way. The attempt
// count, not elapsed time, bounds the loop.
func (r *Resilient) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     r.retry.BaseBackoff,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         r.retry.MaxBackoff,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// IsRetryable reports whether a provider failure is transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.Type == stripe.ErrorTypeAPI
	}
	// Anything else is a transport failure.
	return true
}
