package services

import (
	"context"
	"testing"

	"checkout-service/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUserOrders(t *testing.T) {
	f := newFixture(t)
	checkoutAndEvent(t, f)
	_, err := f.webhook.HandleEvent(context.Background(), []byte("evt_1"), webhookSecret)
	require.NoError(t, err)

	orders, err := f.orders.ListUserOrders(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "pi_1", orders[0].PaymentIntentID)

	none, err := f.orders.ListUserOrders(context.Background(), 8)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	checkoutAndEvent(t, f)
	_, err := f.webhook.HandleEvent(context.Background(), []byte("evt_1"), webhookSecret)
	require.NoError(t, err)
	id := f.store.orders[0].ID

	order, err := f.orders.GetOrder(context.Background(), 7, id)
	require.NoError(t, err)
	assert.Equal(t, int64(4999), order.Total)

	_, err = f.orders.GetOrder(context.Background(), 8, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
