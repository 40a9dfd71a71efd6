package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr              string
	DBPath            string
	LogLevel          string
	SupabaseURL       string
	SupabaseAnonKey   string
	AuthExchangeURL   string
	SyncInterval      time.Duration
	SyncThreshold     int
	SnapshotMaxAge    time.Duration
	ImportWorkerCount int
	ImportQueueSize   int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:              envOr("ADDR", ":8090"),
		DBPath:            envOr("DB_PATH", "file:amctrack.db"),
		LogLevel:          envOr("LOG_LEVEL", "INFO"),
		SupabaseURL:       envOr("SUPABASE_URL", ""),
		SupabaseAnonKey:   envOr("SUPABASE_ANON_KEY", ""),
		AuthExchangeURL:   envOr("AUTH_EXCHANGE_URL", ""),
		SyncInterval:      envDurOr("SYNC_INTERVAL", 10*time.Second),
		SyncThreshold:     envIntOr("SYNC_THRESHOLD", 5),
		SnapshotMaxAge:    envDurOr("SNAPSHOT_MAX_AGE", 24*time.Hour),
		ImportWorkerCount: envIntOr("IMPORT_WORKER_COUNT", 2),
		ImportQueueSize:   envIntOr("IMPORT_QUEUE_SIZE", 32),
	}
}

// Validate checks the configuration for values that would prevent the server
// from operating, collecting all problems into a single error.
func (c Config) Validate() error {
	var problems []string

	if c.Addr == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if c.DBPath == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	if c.SyncInterval <= 0 {
		problems = append(problems, "SYNC_INTERVAL must be positive")
	}
	if c.SyncThreshold <= 0 {
		problems = append(problems, "SYNC_THRESHOLD must be positive")
	}
	if c.SnapshotMaxAge <= 0 {
		problems = append(problems, "SNAPSHOT_MAX_AGE must be positive")
	}
	if c.ImportWorkerCount <= 0 {
		problems = append(problems, "IMPORT_WORKER_COUNT must be positive")
	}
	if c.ImportQueueSize <= 0 {
		problems = append(problems, "IMPORT_QUEUE_SIZE must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %v", key, v, def)
	}
	return def
}
