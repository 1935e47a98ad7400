package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/config"
	"checkout-service/consumers"
	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/middlewares"
	"checkout-service/payment"
	"checkout-service/rabbitmq"
	"checkout-service/repository"
	"checkout-service/services"

	"github.com/rs/cors"
)

func main() {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.Open(database.DSN(cfg))
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := repository.NewMySQLSessions(db)
	orderRepo := repository.NewMySQLOrders(db)
	sweeper := services.NewSessionSweeper(sessions, cfg.RedeliveryWindow, cfg.SweepInterval)

	var publisher services.EventPublisher = services.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		rmq, err := rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			log.Fatalf("RabbitMQ initialization failed: %v", err)
		}
		defer rmq.Close()

		if err := rmq.SetupQueues(); err != nil {
			log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
		}
		if err := consumers.NewOrderConsumer(sweeper).Start(ctx, rmq.Channel, cfg); err != nil {
			log.Fatalf("Failed to start order consumer: %v", err)
		}
		publisher = rmq
	} else {
		log.Printf("RABBITMQ_URL not set, order events are not published")
	}

	provider := payment.NewResilient(
		payment.NewStripeProvider(payment.StripeConfig{
			SecretKey:         cfg.StripeSecretKey,
			SuccessURL:        cfg.SuccessURL,
			CancelURL:         cfg.CancelURL,
			Currency:          cfg.Currency,
			ShippingCountries: cfg.ShippingCountries,
		}),
		payment.RetryConfig{MaxAttempts: cfg.ProviderMaxAttempts, BaseBackoff: cfg.ProviderBackoff},
		middlewares.RecordProviderCall,
	)
	verifier, err := payment.NewWebhookVerifier(cfg.StripeWebhookSecret)
	if err != nil {
		log.Fatalf("Webhook verifier: %v", err)
	}

	orderService := services.NewOrderService(orderRepo, publisher)
	checkoutService := services.NewCheckoutService(
		repository.NewMySQLCatalog(db), sessions, provider, publisher,
		services.CheckoutConfig{
			Currency:         cfg.Currency,
			SessionTTL:       cfg.SessionTTL,
			RedeliveryWindow: cfg.RedeliveryWindow,
		})
	webhookService := services.NewWebhookService(verifier, sessions, orderRepo, orderService)
	authService := services.NewAuthService(repository.NewMySQLUsers(db), cfg.JWTSecret, cfg.TokenTTL, cfg.BcryptCost)

	go sweeper.Run(ctx)

	router := controllers.NewRouter(controllers.Handlers{
		Auth:     controllers.NewAuthController(authService),
		Checkout: controllers.NewCheckoutController(checkoutService),
		Webhook:  controllers.NewWebhookController(webhookService),
		Orders:   controllers.NewOrderController(orderService),
		Health:   pingDB(db),
	}, cfg.JWTSecret, middlewares.NewRateLimiter(cfg.CheckoutRateLimit, cfg.CheckoutBurst))

	server := &http.Server{
		Addr: cfg.Addr(),
		Handler: cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: false,
		}).Handler(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Checkout service starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

func pingDB(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
}
