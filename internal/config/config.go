package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the sales assistant service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	SessionRetention         time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	BrainMode        string
	BrainHTTPURL     string
	BrainHTTPTimeout time.Duration
	BrainMaxRetries  int

	SalesHistoryLimit int
	SalesAutoAdvance  bool
	SalesRandomSeed   uint64

	DatabaseURL            string
	TranscriptContextTurns int

	KafkaBrokers   []string
	KafkaLeadTopic string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "salesbot"),
		AllowAnyOrigin:   false,
		BrainMode:        envOrDefault("BRAIN_MODE", "auto"),
		BrainHTTPURL:     strings.TrimSpace(os.Getenv("BRAIN_HTTP_URL")),
		// The visitor is waiting on a chat bubble; the scripted engine answers if the model is slow.
		BrainHTTPTimeout:         8 * time.Second,
		BrainMaxRetries:          0,
		SalesHistoryLimit:        100,
		SalesAutoAdvance:         false,
		DatabaseURL:              strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TranscriptContextTurns:   12,
		KafkaBrokers:             splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaLeadTopic:           envOrDefault("KAFKA_LEAD_TOPIC", "lead-events"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
		SessionRetention:         time.Hour,
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
	cfg.SessionRetention, err = durationFromEnv("APP_SESSION_RETENTION", cfg.SessionRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainHTTPTimeout, err = durationFromEnv("BRAIN_HTTP_TIMEOUT", cfg.BrainHTTPTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainMaxRetries, err = intFromEnv("BRAIN_MAX_RETRIES", cfg.BrainMaxRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.SalesHistoryLimit, err = intFromEnv("SALES_HISTORY_LIMIT", cfg.SalesHistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.SalesAutoAdvance, err = boolFromEnv("SALES_AUTO_ADVANCE", cfg.SalesAutoAdvance)
	if err != nil {
		return Config{}, err
	}
	cfg.SalesRandomSeed, err = uintFromEnv("SALES_RANDOM_SEED", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.TranscriptContextTurns, err = intFromEnv("TRANSCRIPT_CONTEXT_TURNS", cfg.TranscriptContextTurns)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.SessionRetention <= 0 {
		return Config{}, fmt.Errorf("APP_SESSION_RETENTION must be positive")
	}
	if cfg.BrainHTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("BRAIN_HTTP_TIMEOUT must be positive")
	}
	if cfg.BrainMaxRetries < 0 {
		return Config{}, fmt.Errorf("BRAIN_MAX_RETRIES must be >= 0")
	}
	if cfg.SalesHistoryLimit < 0 {
		return Config{}, fmt.Errorf("SALES_HISTORY_LIMIT must be >= 0")
	}
	if cfg.TranscriptContextTurns < 0 {
		return Config{}, fmt.Errorf("TRANSCRIPT_CONTEXT_TURNS must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.BrainMode)) {
	case "auto", "http", "engine":
	default:
		return Config{}, fmt.Errorf("invalid BRAIN_MODE: %q (expected auto|http|engine)", cfg.BrainMode)
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

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
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
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func uintFromEnv(key string, fallback uint64) (uint64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
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
