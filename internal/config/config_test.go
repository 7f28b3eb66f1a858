package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 0.005, cfg.Epsilon)
	assert.Equal(t, 0.05, cfg.Alpha)
	assert.Equal(t, 1024, cfg.Shots)
	assert.Equal(t, 32, cfg.MaxDepth)
	assert.Equal(t, 64, cfg.MaxRounds)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 2*time.Second, cfg.RetryMaxDelay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Pretty)
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("QPRICER_EPSILON", "0.01")
	t.Setenv("QPRICER_SHOTS", "256")
	t.Setenv("QPRICER_SEED", "12345")
	t.Setenv("QPRICER_RETRY_BASE_DELAY", "250ms")
	t.Setenv("QPRICER_LOG_LEVEL", "debug")
	t.Setenv("QPRICER_LOG_PRETTY", "true")

	cfg := Load()
	assert.Equal(t, 0.01, cfg.Epsilon)
	assert.Equal(t, 256, cfg.Shots)
	assert.Equal(t, int64(12345), cfg.Seed)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Pretty)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("QPRICER_SHOTS", "plenty")
	t.Setenv("QPRICER_EPSILON", "small")

	cfg := Load()
	assert.Equal(t, 1024, cfg.Shots)
	assert.Equal(t, 0.005, cfg.Epsilon)
}

func TestValidateCatchesBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"zero retry attempts", func(c *Config) { c.RetryAttempts = 0 }},
		{"zero base delay", func(c *Config) { c.RetryBaseDelay = 0 }},
		{"max delay below base", func(c *Config) { c.RetryMaxDelay = c.RetryBaseDelay / 2 }},
		{"epsilon out of range", func(c *Config) { c.Epsilon = 0.7 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
