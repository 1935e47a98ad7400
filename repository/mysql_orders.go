package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout-service/apperrors"
	"checkout-service/database"
	"checkout-service/models"
)

type MySQLOrders struct {
	db *sql.DB
}

func NewMySQLOrders(db *sql.DB) *MySQLOrders {
	return &MySQLOrders{db: db}
}

func (r *MySQLOrders) ExistsForEvent(ctx context.Context, providerEventID, paymentIntentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE provider_event_id = ? OR (? <> '' AND payment_intent_id = ?))`,
		providerEventID, paymentIntentID, paymentIntentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order existence: %w", err)
	}
	return exists, nil
}

func (r *MySQLOrders) Materialize(ctx context.Context, order *models.Order, sessionID string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, checkout_session_id, provider_customer_id, provider_session_id,
			provider_event_id, payment_intent_id, subtotal, total, currency, shipping,
			delivery_status, payment_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, sessionID, order.ProviderCustomerID, order.ProviderSessionID,
		order.ProviderEventID, nullIfEmpty(order.PaymentIntentID), order.Subtotal, order.Total,
		order.Currency, nullJSON(order.Shipping), order.DeliveryStatus, order.PaymentStatus,
		order.Timestamp)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return apperrors.Wrap(apperrors.ErrDuplicateOrder, "order already materialized", err)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, product_price, product_quantity)
			 VALUES (?, ?, ?, ?, ?)`,
			order.ID, item.ProductID, item.ProductName, item.ProductPrice, item.ProductQuantity)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = ?, consumed_at = ? WHERE id = ? AND status = ?`,
		models.SessionCompleted, time.Now().UTC(), sessionID, models.SessionPending)
	if err != nil {
		return fmt.Errorf("consume checkout session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume checkout session: %w", err)
	}
	if n == 0 {
		err = ErrSessionNotPending
		return err
	}

	if err = tx.Commit(); err != nil {
		if database.IsDuplicateKey(err) {
			return apperrors.Wrap(apperrors.ErrDuplicateOrder, "order already materialized", err)
		}
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

const orderSelect = `SELECT o.id, o.user_id, o.provider_customer_id, o.provider_session_id,
		o.provider_event_id, o.payment_intent_id, o.subtotal, o.total, o.currency, o.shipping,
		o.delivery_status, o.payment_status, o.created_at,
		oi.product_id, oi.product_name, oi.product_price, oi.product_quantity
	FROM orders o
	JOIN order_items oi ON o.id = oi.order_id`

func (r *MySQLOrders) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		orderSelect+` WHERE o.user_id = ? ORDER BY o.created_at DESC, o.id, oi.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *MySQLOrders) FindByID(ctx context.Context, userID int64, orderID string) (*models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		orderSelect+` WHERE o.id = ? AND o.user_id = ? ORDER BY oi.id`, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, apperrors.NotFound("Order not found")
	}
	return &orders[0], nil
}

// scanOrders folds joined order/item rows into orders, keeping the row order.
func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	orders := []models.Order{}
	index := make(map[string]int)

	for rows.Next() {
		var (
			o        models.Order
			intent   sql.NullString
			shipping []byte
			item     models.OrderItem
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.ProviderCustomerID, &o.ProviderSessionID,
			&o.ProviderEventID, &intent, &o.Subtotal, &o.Total, &o.Currency, &shipping,
			&o.DeliveryStatus, &o.PaymentStatus, &o.Timestamp,
			&item.ProductID, &item.ProductName, &item.ProductPrice, &item.ProductQuantity); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		i, seen := index[o.ID]
		if !seen {
			o.PaymentIntentID = intent.String
			if len(shipping) > 0 {
				o.Shipping = shipping
			}
			o.Items = []models.OrderItem{}
			orders = append(orders, o)
			i = len(orders) - 1
			index[o.ID] = i
		}
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
