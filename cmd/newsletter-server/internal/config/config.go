// Package config provides configuration management for the newsletter
// standalone server. It loads settings from environment variables with
// sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the newsletter server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Mail       MailConfig
	Newsletter NewsletterConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "")
}

// MailConfig holds outbound email configuration.
// Mode selects the mailer: "smtp" sends real mail, "log" writes the
// confirmation parameters to the log, "none" disables sending.
type MailConfig struct {
	Mode         string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	Subject      string
}

// NewsletterConfig holds lifecycle-specific configuration.
type NewsletterConfig struct {
	// BaseURL is the public root used to build confirmation and unsubscribe
	// links, e.g. "https://example.com".
	BaseURL string

	// TokenSecret signs one-click unsubscribe tokens. Optional; without it
	// unsubscribe works by email only.
	TokenSecret string

	// WebhookToken authenticates inbound Postmark webhooks via the
	// X-Postmark-Server-Token header. Empty disables the check.
	WebhookToken string

	ConfirmTokenTTLHours    int
	UnsubscribeTokenTTLDays int
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite3"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "newsletter"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "newsletter.db"),
			Prefix:   getEnv("DB_PREFIX", ""),
		},
		Mail: MailConfig{
			Mode:         getEnv("MAIL_MODE", "log"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("MAIL_FROM", ""),
			Subject:      getEnv("MAIL_SUBJECT", ""),
		},
		Newsletter: NewsletterConfig{
			BaseURL:                 getEnv("NEWSLETTER_BASE_URL", "http://localhost:8080"),
			TokenSecret:             getEnv("NEWSLETTER_TOKEN_SECRET", ""),
			WebhookToken:            getEnv("POSTMARK_WEBHOOK_TOKEN", ""),
			ConfirmTokenTTLHours:    getEnvInt("CONFIRM_TOKEN_TTL_HOURS", 24),
			UnsubscribeTokenTTLDays: getEnvInt("UNSUBSCRIBE_TOKEN_TTL_DAYS", 30),
		},
	}

	// Validate required fields
	if cfg.Database.Driver != "sqlite3" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required for driver %s", cfg.Database.Driver)
	}
	if cfg.Mail.Mode == "smtp" {
		if cfg.Mail.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST environment variable is required when MAIL_MODE=smtp")
		}
		if cfg.Mail.From == "" {
			return nil, fmt.Errorf("MAIL_FROM environment variable is required when MAIL_MODE=smtp")
		}
	}

	return cfg, nil
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
