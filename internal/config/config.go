package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServiceName string
	HTTPPort    string
	LogLevel    string

	Database DatabaseConfig
	Checkout CheckoutConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CheckoutConfig carries the saga tunables: the degraded-mode unit price used
// when the catalog lookup fails, and the bounded retry policy for
// compensation releases.
type CheckoutConfig struct {
	Currency           string
	PaymentMethod      string
	FallbackUnitPrice  float64
	ReleaseRetries     int
	ReleaseBackoff     time.Duration
	CatalogBaseURL     string
	CatalogTimeout     time.Duration
	PaymentFailureRate float64
}

func Load() *Config {
	fallbackPrice, _ := strconv.ParseFloat(getEnvOrDefault("CHECKOUT_FALLBACK_UNIT_PRICE", "100.00"), 64)
	releaseRetries, _ := strconv.Atoi(getEnvOrDefault("CHECKOUT_RELEASE_RETRIES", "3"))
	// A compensation release must be attempted at least once.
	if releaseRetries < 1 {
		releaseRetries = 1
	}
	releaseBackoffMs, _ := strconv.Atoi(getEnvOrDefault("CHECKOUT_RELEASE_BACKOFF_MS", "200"))
	catalogTimeoutMs, _ := strconv.Atoi(getEnvOrDefault("CATALOG_TIMEOUT_MS", "2000"))
	paymentFailureRate, _ := strconv.ParseFloat(getEnvOrDefault("PAYMENT_FAILURE_RATE", "0.0"), 64)

	return &Config{
		ServiceName: getEnvOrDefault("SERVICE_NAME", "order-fulfillment"),
		HTTPPort:    getEnvOrDefault("PORT", "8003"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			Name:     getEnvOrDefault("DB_NAME", "fulfillment_db"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		Checkout: CheckoutConfig{
			Currency:           getEnvOrDefault("CHECKOUT_CURRENCY", "USD"),
			PaymentMethod:      getEnvOrDefault("CHECKOUT_PAYMENT_METHOD", "credit_card"),
			FallbackUnitPrice:  fallbackPrice,
			ReleaseRetries:     releaseRetries,
			ReleaseBackoff:     time.Duration(releaseBackoffMs) * time.Millisecond,
			CatalogBaseURL:     getEnvOrDefault("CATALOG_URL", "http://localhost:8001"),
			CatalogTimeout:     time.Duration(catalogTimeoutMs) * time.Millisecond,
			PaymentFailureRate: paymentFailureRate,
		},
	}
}

func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
