package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the support chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	// Upstream OpenAI-compatible completion endpoint used by the chat gateway.
	UpstreamChatURL string
	UpstreamAPIKey  string
	UpstreamModel   string

	// Endpoint the streaming chat client talks to. Defaults to our own gateway.
	ChatStreamURL string

	CallLanguage       string
	CallGreeting       string
	CallDebounceWindow time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "solace"),
		AllowAnyOrigin:   false,
		UpstreamChatURL:  envOrDefault("UPSTREAM_CHAT_URL", "https://ai.gateway.lovable.dev/v1/chat/completions"),
		UpstreamAPIKey:   envTrimmed("UPSTREAM_API_KEY"),
		UpstreamModel:    envOrDefault("UPSTREAM_MODEL", "google/gemini-3-flash-preview"),
		ChatStreamURL:    envOrDefault("CHAT_STREAM_URL", "/v1/chat"),
		CallLanguage:     envOrDefault("CALL_LANGUAGE", "en"),
		CallGreeting:     envOrDefault("CALL_GREETING", "Hi! I'm listening. How are you feeling today?"),
		DatabaseURL:      envTrimmed("DATABASE_URL"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
		CallDebounceWindow:       3 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CallDebounceWindow, err = durationFromEnv("CALL_DEBOUNCE_WINDOW", cfg.CallDebounceWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.CallDebounceWindow < 0 {
		return Config{}, fmt.Errorf("CALL_DEBOUNCE_WINDOW must not be negative")
	}
	if strings.TrimSpace(cfg.UpstreamChatURL) == "" {
		return Config{}, fmt.Errorf("UPSTREAM_CHAT_URL must not be empty")
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

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
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
