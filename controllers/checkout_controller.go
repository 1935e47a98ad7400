package controllers

import (
	"context"
	"net/http"

	"checkout-service/apperrors"
	"checkout-service/middlewares"
	"checkout-service/models"

	"github.com/gin-gonic/gin"
)

type CheckoutInitiator interface {
	InitiateCheckout(ctx context.Context, userID int64, items []models.CartItem) (string, error)
}

type CheckoutController struct {
	checkout CheckoutInitiator
}

func NewCheckoutController(checkout CheckoutInitiator) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

type checkoutRequest struct {
	Items []models.CartItem `json:"items" binding:"required,min=1,dive"`
	// UserID is optional; when present it must match the authenticated caller.
	UserID int64 `json:"userId"`
}

// CreateCheckout handles POST /checkout and returns the hosted payment page URL.
func (ctl *CheckoutController) CreateCheckout(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("checkout", succeeded(c))
	}()
	callerID, _, ok := requireUser(c)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.UserID != 0 && req.UserID != callerID {
		respondError(c, apperrors.New(apperrors.ErrForbidden, "Cannot check out for another user"))
		return
	}

	url, err := ctl.checkout.InitiateCheckout(c.Request.Context(), callerID, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
