package controllers

import (
	"context"
	"net/http"

	"checkout-service/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth     *AuthController
	Checkout *CheckoutController
	Webhook  *WebhookController
	Orders   *OrderController
	// Health reports whether dependencies are reachable.
	Health func(ctx context.Context) error
}

func NewRouter(h Handlers, jwtSecret string, limiter *middlewares.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		if h.Health != nil {
			if err := h.Health(c.Request.Context()); err != nil {
				middlewares.AbortWithError(c, http.StatusServiceUnavailable, "Service unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/register", h.Auth.Register)
	r.POST("/auth/token", h.Auth.Login)

	// The provider authenticates by signature, not by bearer token.
	r.POST("/webhook", h.Webhook.HandleWebhook)

	authGroup := r.Group("/")
	authGroup.Use(middlewares.AuthMiddleware(jwtSecret))
	{
		authGroup.POST("/checkout", limiter.Limit(), h.Checkout.CreateCheckout)
		authGroup.GET("/orders/:userId", h.Orders.GetUserOrders)
		authGroup.GET("/orders/:userId/:orderId", h.Orders.GetOrderDetails)
	}

	r.NoRoute(func(c *gin.Context) {
		middlewares.AbortWithError(c, http.StatusNotFound, "Route not found")
	})
	return r
}
