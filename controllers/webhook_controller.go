package controllers

import (
	"context"
	"io"
	"log"
	"net/http"

	"checkout-service/middlewares"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 64 << 10

type EventHandler interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (services.Outcome, error)
}

type WebhookController struct {
	events EventHandler
}

func NewWebhookController(events EventHandler) *WebhookController {
	return &WebhookController{events: events}
}

// HandleWebhook handles POST /webhook. It answers 400 only when the signature does not
// verify; every verified delivery is acknowledged with 200.
func (ctl *WebhookController) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		middlewares.RecordWebhookOutcome(string(services.OutcomeRejected))
		middlewares.AbortWithError(c, http.StatusBadRequest, "Unreadable webhook payload")
		return
	}

	outcome, err := ctl.events.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	middlewares.RecordWebhookOutcome(string(outcome))
	if err != nil {
		log.Printf("Rejected webhook delivery: %v", err)
		middlewares.AbortWithError(c, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
