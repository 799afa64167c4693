package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Products ProductsConfig
	Batch    BatchConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ProductsConfig holds configuration for the product database API.
type ProductsConfig struct {
	BaseURL       string
	StaticBaseURL string
	Username      string
	Password      string
	Timeout       time.Duration
}

// BatchConfig holds batch-processing configuration.
type BatchConfig struct {
	MaxRetries    int
	RetryInterval time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Products: ProductsConfig{
			BaseURL:       getEnv("PRODUCTS_BASE_URL", "https://world.openfoodfacts.org"),
			StaticBaseURL: getEnv("PRODUCTS_STATIC_BASE_URL", "https://static.openfoodfacts.org"),
			Username:      getEnv("PRODUCTS_USERNAME", ""),
			Password:      getEnv("PRODUCTS_PASSWORD", ""),
			Timeout:       getEnvAsDuration("PRODUCTS_TIMEOUT", 30*time.Second),
		},
		Batch: BatchConfig{
			MaxRetries:    getEnvAsInt("BATCH_MAX_RETRIES", 3),
			RetryInterval: getEnvAsDuration("BATCH_RETRY_INTERVAL", 2*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Products.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "PRODUCTS_BASE_URL is required", ErrInvalidInput)
	}
	return nil
}
