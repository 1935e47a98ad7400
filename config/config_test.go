package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CHECKOUT_SESSION_TTL", "")
	t.Setenv("SHIPPING_COUNTRIES", "")

	cfg := LoadConfig()

	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 72*time.Hour, cfg.RedeliveryWindow)
	assert.Equal(t, []string{"US"}, cfg.ShippingCountries)
	assert.Equal(t, 3, cfg.ProviderMaxAttempts)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("CHECKOUT_SESSION_TTL", "45m")
	t.Setenv("SHIPPING_COUNTRIES", "US, CA ,")
	t.Setenv("PROVIDER_MAX_ATTEMPTS", "5")
	t.Setenv("PORT", ":9090")

	cfg := LoadConfig()

	assert.Equal(t, 45*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"US", "CA"}, cfg.ShippingCountries)
	assert.Equal(t, 5, cfg.ProviderMaxAttempts)
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoadConfig_SecretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whsec")
	require.NoError(t, os.WriteFile(path, []byte("whsec_from_file\n"), 0o600))
	t.Setenv("STRIPE_WEBHOOK_SECRET_FILE", path)
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_from_env")

	cfg := LoadConfig()

	assert.Equal(t, "whsec_from_file", cfg.StripeWebhookSecret)
}

func TestValidate_RequiresWebhookSecret(t *testing.T) {
	cfg := &Config{
		JWTSecret:           "jwt",
		StripeSecretKey:     "sk_test",
		SessionTTL:          time.Hour,
		ProviderMaxAttempts: 1,
	}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")

	cfg.StripeWebhookSecret = "whsec"
	assert.NoError(t, cfg.Validate())
}
