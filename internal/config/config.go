package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the assistant widget service.
type Config struct {
	BindAddr                string
	ShutdownTimeout         time.Duration
	WidgetInactivityTimeout time.Duration
	MetricsNamespace        string

	AllowAnyOrigin bool

	KnowledgeBasePath string
	DefaultLanguage   string
	ReplyDelay        time.Duration
	SuggestionCount   int

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "mpanampy"),
		AllowAnyOrigin:   false,
		// The knowledge base document ships with the deployment; an
		// http(s) URL is also accepted.
		KnowledgeBasePath: envOrDefault("KNOWLEDGE_BASE_PATH", "data/faq.json"),
		DefaultLanguage:   envOrDefault("DEFAULT_LANGUAGE", "fr"),
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),
		// Mimics the human pause the widget shows before a reply.
		ReplyDelay:              600 * time.Millisecond,
		SuggestionCount:         4,
		ShutdownTimeout:         15 * time.Second,
		WidgetInactivityTimeout: 30 * time.Minute,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WidgetInactivityTimeout, err = durationFromEnv("APP_WIDGET_INACTIVITY_TIMEOUT", cfg.WidgetInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReplyDelay, err = durationFromEnv("REPLY_DELAY", cfg.ReplyDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.SuggestionCount, err = intFromEnv("SUGGESTION_COUNT", cfg.SuggestionCount)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage)) {
	case "mg", "fr", "en":
	default:
		return Config{}, fmt.Errorf("DEFAULT_LANGUAGE must be one of mg|fr|en")
	}
	if cfg.ReplyDelay < 0 {
		return Config{}, fmt.Errorf("REPLY_DELAY must not be negative")
	}
	if cfg.SuggestionCount <= 0 {
		return Config{}, fmt.Errorf("SUGGESTION_COUNT must be positive")
	}
	if cfg.WidgetInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_WIDGET_INACTIVITY_TIMEOUT must be at least 5s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
