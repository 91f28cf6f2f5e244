package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	TelegramToken    string
	TelegramDisabled bool
	StoreDriver      string
	WalletFile       string
	DbURL            string
	KafkaBroker      string
	KafkaTopic       string
	APIHost          string
	APIPort          int
	UnbondInterval   time.Duration
	JailInterval     time.Duration
	HTTPTimeout      time.Duration
	RESTRequestsPerS float64
	SkipZeroBalance  bool
	NetworksFile     string
	LogDevelopment   bool
}

// NewConfig loads configuration from a .env file, if present, and environment variables.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramDisabled: getEnvBool("TELEGRAM_DISABLED", false),
		StoreDriver:      getEnv("STORE_DRIVER", StoreDriverFile),
		WalletFile:       getEnv("WALLET_FILE", "wallet.json"),
		DbURL:            os.Getenv("DB_URL"),
		KafkaBroker:      os.Getenv("KAFKA_BROKER"),
		KafkaTopic:       os.Getenv("KAFKA_TOPIC"),
		APIHost:          getEnv("API_HOST", "127.0.0.1"),
		APIPort:          getEnvInt("API_PORT", 8080),
		UnbondInterval:   getEnvDuration("UNBOND_INTERVAL", 60*time.Second),
		JailInterval:     getEnvDuration("JAIL_INTERVAL", 60*time.Second),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		RESTRequestsPerS: getEnvFloat("REST_RPS", 10),
		SkipZeroBalance:  getEnvBool("SKIP_ZERO_BALANCE", true),
		NetworksFile:     os.Getenv("NETWORKS_FILE"),
		LogDevelopment:   getEnvBool("LOG_DEVELOPMENT", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KafkaEnabled reports whether notifications are also published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return c.KafkaBroker != "" && c.KafkaTopic != ""
}

func (c *Config) validate() error {
	if c.TelegramToken == "" && !c.TelegramDisabled {
		return errors.New("environment variable TELEGRAM_TOKEN not set")
	}

	switch c.StoreDriver {
	case StoreDriverFile:
		if c.WalletFile == "" {
			return errors.New("WALLET_FILE must not be empty")
		}
	case StoreDriverPostgres:
		if c.DbURL == "" {
			return errors.New("environment variable DB_URL not set")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.UnbondInterval <= 0 || c.JailInterval <= 0 {
		return errors.New("cycle intervals must be positive")
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
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
