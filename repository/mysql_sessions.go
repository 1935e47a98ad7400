package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/models"
)

type MySQLSessions struct {
	db *sql.DB
}

func NewMySQLSessions(db *sql.DB) *MySQLSessions {
	return &MySQLSessions{db: db}
}

const sessionColumns = `id, provider_customer_id, provider_session_id, user_id, cart_snapshot,
	status, created_at, expires_at, consumed_at`

func (r *MySQLSessions) Create(ctx context.Context, s *models.CheckoutSession) error {
	snapshot, err := json.Marshal(s.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO checkout_sessions (id, provider_customer_id, provider_session_id, user_id,
			cart_snapshot, status, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProviderCustomerID, s.ProviderSessionID, s.UserID,
		snapshot, s.Status, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *MySQLSessions) FindByID(ctx context.Context, id string) (*models.CheckoutSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM checkout_sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *MySQLSessions) FindByProviderSession(ctx context.Context, providerSessionID string) (*models.CheckoutSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM checkout_sessions WHERE provider_session_id = ?`, providerSessionID)
	return scanSession(row)
}

func (r *MySQLSessions) FindByProviderCustomer(ctx context.Context, providerCustomerID string) (*models.CheckoutSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM checkout_sessions
		 WHERE provider_customer_id = ?
		 ORDER BY created_at DESC LIMIT 1`, providerCustomerID)
	return scanSession(row)
}

func (r *MySQLSessions) MarkAbandoned(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = ? WHERE id = ? AND status = ?`,
		models.SessionAbandoned, id, models.SessionPending)
	if err != nil {
		return false, fmt.Errorf("abandon checkout session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("abandon checkout session: %w", err)
	}
	return n > 0, nil
}

func (r *MySQLSessions) AbandonStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = ? WHERE status = ? AND expires_at < ?`,
		models.SessionAbandoned, models.SessionPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("abandon stale sessions: %w", err)
	}
	return result.RowsAffected()
}

func scanSession(row *sql.Row) (*models.CheckoutSession, error) {
	var (
		s          models.CheckoutSession
		snapshot   []byte
		consumedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.ProviderCustomerID, &s.ProviderSessionID, &s.UserID, &snapshot,
		&s.Status, &s.CreatedAt, &s.ExpiresAt, &consumedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}
	if err := json.Unmarshal(snapshot, &s.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
	}
	if consumedAt.Valid {
		s.ConsumedAt = &consumedAt.Time
	}
	return &s, nil
}
