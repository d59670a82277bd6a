package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// Exchange-rate provider
	ExchangeAPIURL     string
	ExchangeAPIKey     string
	ExchangeTimeout    time.Duration
	CurrencyCodesTTL   time.Duration
	CurrencyCacheSize  int
	CacheCleanInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bilancio.db"),

		ExchangeAPIURL:     getEnv("EXCHANGE_API_URL", "https://v6.exchangerate-api.com/v6"),
		ExchangeAPIKey:     getEnv("EXCHANGE_API_KEY", ""),
		ExchangeTimeout:    getEnvDuration("EXCHANGE_TIMEOUT", 10*time.Second),
		CurrencyCodesTTL:   getEnvDuration("CURRENCY_CODES_TTL", 24*time.Hour),
		CurrencyCacheSize:  getEnvInt("CURRENCY_CACHE_SIZE", 16),
		CacheCleanInterval: getEnvDuration("CACHE_CLEAN_INTERVAL", time.Hour),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.ExchangeAPIURL == "" {
		errors = append(errors, "exchange API URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.ExchangeAPIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid exchange API URL '%s': %v", c.ExchangeAPIURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid exchange API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.ExchangeTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid exchange timeout %v: must be at least 1 second", c.ExchangeTimeout))
	}

	if c.CurrencyCodesTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid currency codes TTL %v: must be at least 1 minute", c.CurrencyCodesTTL))
	}

	if c.CurrencyCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid currency cache size %d: must be at least 1", c.CurrencyCacheSize))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
