// Package config loads service configuration from the environment,
// with a .env file picked up when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
	ListenAddr string
	LogLevel   string

	// BackendURL is the base URL of the transcription service.
	BackendURL string

	PollInterval    time.Duration
	MaxPollFailures int
	MaxPollDuration time.Duration

	// SyncWindow is the active-segment window in seconds.
	SyncWindow float64

	// Supabase credentials for the segment archive; both empty
	// disables archiving and saves go to the backend only.
	SupabaseURL string
	SupabaseKey string
}

// Load reads configuration, applying defaults for anything unset.
func Load() Config {
	// Missing .env is fine; real deployments set the environment.
	_ = godotenv.Load()

	return Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		BackendURL:      getEnv("TRANSCRIBER_URL", "http://localhost:8000"),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 2*time.Second),
		MaxPollFailures: getEnvInt("MAX_POLL_FAILURES", 30),
		MaxPollDuration: getEnvDuration("MAX_POLL_DURATION", 30*time.Minute),
		SyncWindow:      getEnvFloat("SYNC_WINDOW_SECONDS", 5),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseKey:     os.Getenv("SUPABASE_SERVICE_KEY"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
