package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	StripeSecretKey     string
	StripeWebhookSecret string
	SuccessURL          string
	CancelURL           string
	Currency            string
	ShippingCountries   []string

	// SessionTTL bounds how long after creation a checkout session may still be paid.
	SessionTTL time.Duration
	// RedeliveryWindow is how long the provider keeps retrying a webhook delivery.
	RedeliveryWindow    time.Duration
	SweepInterval       time.Duration
	ProviderMaxAttempts int
	ProviderBackoff     time.Duration

	CheckoutRateLimit float64
	CheckoutBurst     int

	RabbitMQURL     string
	OrderExchange   string
	OrderQueue      string
	DeadLetterQueue string
	DelayExchange   string
	MaxPriority     int
}

// LoadConfig reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),

		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnvFromFile("DB_PASSWORD_FILE", "DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBName:     getEnv("DB_NAME", "checkout"),

		JWTSecret:  getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", ""),
		TokenTTL:   getDuration("TOKEN_TTL", 24*time.Hour),
		BcryptCost: getInt("BCRYPT_COST", 12),

		StripeSecretKey:     getEnvFromFile("STRIPE_SECRET_KEY_FILE", "STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnvFromFile("STRIPE_WEBHOOK_SECRET_FILE", "STRIPE_WEBHOOK_SECRET", ""),
		SuccessURL:          getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/success"),
		CancelURL:           getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/cancel"),
		Currency:            getEnv("CHECKOUT_CURRENCY", "usd"),
		ShippingCountries:   getList("SHIPPING_COUNTRIES", []string{"US"}),

		SessionTTL:          getDuration("CHECKOUT_SESSION_TTL", time.Hour),
		RedeliveryWindow:    getDuration("WEBHOOK_REDELIVERY_WINDOW", 72*time.Hour),
		SweepInterval:       getDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute),
		ProviderMaxAttempts: getInt("PROVIDER_MAX_ATTEMPTS", 3),
		ProviderBackoff:     getDuration("PROVIDER_BACKOFF", 200*time.Millisecond),

		CheckoutRateLimit: getFloat("CHECKOUT_RATE_LIMIT", 5),
		CheckoutBurst:     getInt("CHECKOUT_RATE_BURST", 10),

		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		OrderExchange:   getEnv("ORDER_EXCHANGE", "orders_exchange"),
		OrderQueue:      getEnv("ORDER_QUEUE", "orders_queue"),
		DeadLetterQueue: getEnv("DEAD_LETTER_QUEUE", "dead_letter_queue"),
		DelayExchange:   getEnv("DELAY_EXCHANGE", "delay_exchange"),
		MaxPriority:     10,
	}
}

// Validate reports every mandatory setting that is missing or out of range.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.StripeSecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	// Webhook events are never accepted unsigned.
	if c.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("CHECKOUT_SESSION_TTL must be positive"))
	}
	if c.ProviderMaxAttempts < 1 {
		errs = append(errs, errors.New("PROVIDER_MAX_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFromFile(fileKey, envKey, defaultValue string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, defaultValue)
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
