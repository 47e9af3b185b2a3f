package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	AttachmentRoot      string
	IMAPTimeout         time.Duration
	Timezone            string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILSORT_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	timeout, err := parseTimeout(os.Getenv("MAILSORT_IMAP_TIMEOUT_SECONDS"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("MAILSORT_ENCRYPTION_KEY_BASE64"),
		DBHost:              getEnvOrDefault("MAILSORT_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("MAILSORT_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("MAILSORT_DB_USER", "mailsort"),
		DBPassword:          os.Getenv("MAILSORT_DB_PASSWORD"),
		DBName:              getEnvOrDefault("MAILSORT_DB_NAME", "mailsort"),
		DBSSLMode:           getEnvOrDefault("MAILSORT_DB_SSLMODE", "disable"),
		AttachmentRoot:      getEnvOrDefault("MAILSORT_ATTACHMENT_DIR", "attachments"),
		IMAPTimeout:         timeout,
		Timezone:            getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("MAILSORT_ENCRYPTION_KEY_BASE64 is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("MAILSORT_DB_PASSWORD is required")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 5 * time.Second, nil
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("MAILSORT_IMAP_TIMEOUT_SECONDS must be a positive integer, got %q", raw)
	}

	return time.Duration(seconds) * time.Second, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
