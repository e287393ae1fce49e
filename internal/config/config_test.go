package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "order-fulfillment", cfg.ServiceName)
	assert.Equal(t, "8003", cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Equal(t, 100.00, cfg.Checkout.FallbackUnitPrice)
	assert.Equal(t, 3, cfg.Checkout.ReleaseRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Checkout.ReleaseBackoff)
	assert.Equal(t, 0.0, cfg.Checkout.PaymentFailureRate)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CHECKOUT_FALLBACK_UNIT_PRICE", "49.99")
	t.Setenv("CHECKOUT_RELEASE_RETRIES", "5")
	t.Setenv("DB_NAME", "fulfillment_test")

	cfg := Load()

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 49.99, cfg.Checkout.FallbackUnitPrice)
	assert.Equal(t, 5, cfg.Checkout.ReleaseRetries)
	assert.Contains(t, cfg.Database.ConnectionString(), "dbname=fulfillment_test")
}

func TestReleaseRetriesFloorsAtOne(t *testing.T) {
	t.Setenv("CHECKOUT_RELEASE_RETRIES", "0")
	assert.Equal(t, 1, Load().Checkout.ReleaseRetries)

	t.Setenv("CHECKOUT_RELEASE_RETRIES", "-3")
	assert.Equal(t, 1, Load().Checkout.ReleaseRetries)
}
