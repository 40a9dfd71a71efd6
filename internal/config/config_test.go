package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/openamc/amctrack/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Addr:              ":8090",
		DBPath:            "test.db",
		LogLevel:          "INFO",
		SyncInterval:      10 * time.Second,
		SyncThreshold:     5,
		SnapshotMaxAge:    24 * time.Hour,
		ImportWorkerCount: 2,
		ImportQueueSize:   32,
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_EmptyAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Addr = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ADDR cannot be empty")
}

func TestValidate_EmptyDBPath(t *testing.T) {
	cfg := validConfig()
	cfg.DBPath = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PATH cannot be empty")
}

func TestValidate_LogLevels(t *testing.T) {
	for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR", "debug"} {
		t.Run(level, func(t *testing.T) {
			cfg := validConfig()
			cfg.LogLevel = level
			assert.NoError(t, cfg.Validate())
		})
	}

	cfg := validConfig()
	cfg.LogLevel = "INVALID"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestValidate_SyncSettings(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		expected string
	}{
		{
			name:     "zero interval",
			mutate:   func(c *config.Config) { c.SyncInterval = 0 },
			expected: "SYNC_INTERVAL",
		},
		{
			name:     "zero threshold",
			mutate:   func(c *config.Config) { c.SyncThreshold = 0 },
			expected: "SYNC_THRESHOLD",
		},
		{
			name:     "negative snapshot age",
			mutate:   func(c *config.Config) { c.SnapshotMaxAge = -time.Hour },
			expected: "SNAPSHOT_MAX_AGE",
		},
		{
			name:     "zero import workers",
			mutate:   func(c *config.Config) { c.ImportWorkerCount = 0 },
			expected: "IMPORT_WORKER_COUNT",
		},
		{
			name:     "zero import queue",
			mutate:   func(c *config.Config) { c.ImportQueueSize = 0 },
			expected: "IMPORT_QUEUE_SIZE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := config.Config{}

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "ADDR cannot be empty")
	assert.Contains(t, errStr, "DB_PATH cannot be empty")
	assert.Contains(t, errStr, "SYNC_INTERVAL")
	assert.Contains(t, errStr, "IMPORT_WORKER_COUNT")
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("SYNC_INTERVAL", "30s")
	t.Setenv("SYNC_THRESHOLD", "8")

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 8, cfg.SyncThreshold)
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ADDR", "SYNC_INTERVAL", "SYNC_THRESHOLD", "SNAPSHOT_MAX_AGE"} {
		require.NoError(t, os.Unsetenv(key))
	}

	cfg := config.Load()

	assert.Equal(t, ":8090", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.SyncInterval)
	assert.Equal(t, 5, cfg.SyncThreshold)
	assert.Equal(t, 24*time.Hour, cfg.SnapshotMaxAge)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SYNC_THRESHOLD", "not-a-number")
	t.Setenv("SYNC_INTERVAL", "soon")

	cfg := config.Load()

	assert.Equal(t, 5, cfg.SyncThreshold)
	assert.Equal(t, 10*time.Second, cfg.SyncInterval)
}
