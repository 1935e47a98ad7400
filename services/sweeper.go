package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/repository"
)

// SessionSweeper abandons checkout sessions that can no longer be paid. A session stays
// pending for the provider's redelivery window after it expires, so a late delivery of a
// payment made in time still finds it.
type SessionSweeper struct {
	sessions         repository.SessionRepository
	redeliveryWindow time.Duration
	interval         time.Duration
	now              func() time.Time
}

func NewSessionSweeper(sessions repository.SessionRepository, redeliveryWindow, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SessionSweeper{
		sessions:         sessions,
		redeliveryWindow: redeliveryWindow,
		interval:         interval,
		now:              time.Now,
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Session sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *SessionSweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.sessions.AbandonStale(ctx, s.cutoff())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logging.Log(logging.Fields{Step: "sweep", Status: "abandoned", Message: fmt.Sprintf("%d stale sessions", n)})
	}
	return n, nil
}

// ExpireSession abandons a single session if it is past its grace period. It reports
// whether the session was abandoned; a session not yet due is left alone.
func (s *SessionSweeper) ExpireSession(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if session.Status != models.SessionPending || !session.ExpiresAt.Before(s.cutoff()) {
		return false, nil
	}

	changed, err := s.sessions.MarkAbandoned(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if changed {
		logging.Log(logging.Fields{SessionID: sessionID, UserID: session.UserID, Step: "expire", Status: "abandoned"})
	}
	return changed, nil
}

func (s *SessionSweeper) cutoff() time.Time {
	return s.now().UTC().Add(-s.redeliveryWindow)
}
