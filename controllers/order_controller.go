package controllers

import (
	"context"
	"net/http"

	"checkout-service/middlewares"
	"checkout-service/models"

	"github.com/gin-gonic/gin"
)

type OrderReader interface {
	ListUserOrders(ctx context.Context, userID int64) ([]models.Order, error)
	GetOrder(ctx context.Context, userID int64, orderID string) (*models.Order, error)
}

type OrderController struct {
	orders OrderReader
}

func NewOrderController(orders OrderReader) *OrderController {
	return &OrderController{orders: orders}
}

// GetUserOrders handles GET /orders/:userId.
func (ctl *OrderController) GetUserOrders(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("list", succeeded(c))
	}()
	userID, ok := authorizeUserParam(c)
	if !ok {
		return
	}

	orders, err := ctl.orders.ListUserOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderDetails handles GET /orders/:userId/:orderId.
func (ctl *OrderController) GetOrderDetails(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("details", succeeded(c))
	}()
	userID, ok := authorizeUserParam(c)
	if !ok {
		return
	}

	order, err := ctl.orders.GetOrder(c.Request.Context(), userID, c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
