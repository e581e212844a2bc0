package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	Port         string
	LogLevel     string
	LogFormat    string
	// PublicURL is the externally visible base URL used to build invite links.
	PublicURL string

	// AI providers. None is required: without a key every menu comes from the fallback tables.
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIURL    string
	OpenAIModel  string
	// AIFunctionURL points at a remote generate-menu endpoint; when set it is used
	// instead of calling a provider in-process.
	AIFunctionURL string

	AITimeout    time.Duration
	GroceryDelay time.Duration

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		DatabasePath:       getEnv("DATABASE_PATH", "data/lamitna.db"),
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		PublicURL:          strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        os.Getenv("GEMINI_MODEL"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIURL:          os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		AIFunctionURL:      os.Getenv("AI_FUNCTION_URL"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}

	var err error
	if cfg.AITimeout, err = getDuration("AI_TIMEOUT", 25*time.Second); err != nil {
		return nil, err
	}
	if cfg.GroceryDelay, err = getDuration("GROCERY_DELAY", 1800*time.Millisecond); err != nil {
		return nil, err
	}

	if raw := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS contains invalid id %q", part)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}

	if raw := os.Getenv("ADMIN_TELEGRAM_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not a valid id: %q", raw)
		}
		cfg.AdminTelegramID = id
	}

	return cfg, nil
}

// HasAIProvider reports whether any generation backend is configured.
func (c *Config) HasAIProvider() bool {
	return c.AIFunctionURL != "" || c.OpenAIAPIKey != "" || c.GeminiAPIKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s is not a valid duration: %q", key, raw)
	}
	return d, nil
}
