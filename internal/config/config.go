package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/backoffice/internal/mailer"
	"github.com/backoffice/internal/notify"
	"github.com/backoffice/internal/store"
)

type Config struct {
	// Server
	Port     string
	Env      string // development, production
	LogLevel string

	// Database
	DatabaseURL   string
	MongoDatabase string

	// SMTP. Incomplete settings disable email rather than fail startup.
	SMTP mailer.Config

	ClientURL string

	// Admin API
	AdminAPIToken string

	// Limits
	RateLimitPerMinute int

	// Kafka intake, disabled when Brokers is empty
	Kafka struct {
		Brokers []string
		Topic   string
		GroupID string
	}

	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load reads configuration from .env, the environment and args, in
// increasing order of precedence.
func Load(args []string) (*Config, error) {
	// Load .env file if it exists (don't error if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	fs := flag.NewFlagSet("backoffice", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "Server port")
	fs.StringVar(&cfg.Env, "env", getEnv("ENV", "development"), "Environment (development, production)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "PostgreSQL or MongoDB connection string")

	cfg.LogLevel = getEnv("LOG_LEVEL", "")
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", "backoffice")

	cfg.SMTP = mailer.Config{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     getEnvInt("SMTP_PORT", 0),
		User:     getEnv("SMTP_USER", ""),
		Password: getEnv("SMTP_PASS", ""),
		From:     getEnv("SMTP_FROM", ""),
	}
	cfg.ClientURL = getEnv("CLIENT_URL", notify.DefaultClientURL)

	cfg.AdminAPIToken = getEnv("ADMIN_API_TOKEN", "")
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 10)

	cfg.Kafka.Brokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "backoffice.notifications")
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", "backoffice-notifier")

	cfg.SeedAdminEmail = getEnv("SEED_ADMIN_EMAIL", "")
	cfg.SeedAdminPassword = getEnv("SEED_ADMIN_PASSWORD", "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks only what the service cannot run without. Missing SMTP
// settings are reported later by the mailer as a warning.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := store.Backend(c.DatabaseURL); err != nil {
		return fmt.Errorf("DATABASE_URL: %w", err)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt returns fallback when key is unset or not a number.
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
