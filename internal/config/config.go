// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/qpricer/internal/estimation"
)

// Config holds application configuration
type Config struct {
	Epsilon        float64       // Target half-width of the amplitude interval
	Alpha          float64       // Overall confidence failure probability
	Shots          int           // Measurements per estimation round
	MaxDepth       int           // Amplification depth cap per circuit
	MaxRounds      int           // Estimation round cap
	Workers        int           // Sweep workers; 0 means one per CPU, memory permitting
	Seed           int64         // Measurement sampling seed
	RetryAttempts  int           // Sampler attempts before giving up
	RetryBaseDelay time.Duration // First retry delay, doubled per attempt
	RetryMaxDelay  time.Duration // Retry delay cap
	LogLevel       string
	Pretty         bool
}

// Load reads configuration from the environment, with a .env file as
// fallback source when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Epsilon:        getEnvAsFloat("QPRICER_EPSILON", 0.005),
		Alpha:          getEnvAsFloat("QPRICER_ALPHA", 0.05),
		Shots:          getEnvAsInt("QPRICER_SHOTS", 1024),
		MaxDepth:       getEnvAsInt("QPRICER_MAX_DEPTH", 32),
		MaxRounds:      getEnvAsInt("QPRICER_MAX_ROUNDS", 64),
		Workers:        getEnvAsInt("QPRICER_WORKERS", 0),
		Seed:           getEnvAsInt64("QPRICER_SEED", 1),
		RetryAttempts:  getEnvAsInt("QPRICER_RETRY_ATTEMPTS", 3),
		RetryBaseDelay: getEnvAsDuration("QPRICER_RETRY_BASE_DELAY", 100*time.Millisecond),
		RetryMaxDelay:  getEnvAsDuration("QPRICER_RETRY_MAX_DELAY", 2*time.Second),
		LogLevel:       getEnv("QPRICER_LOG_LEVEL", "info"),
		Pretty:         getEnvAsBool("QPRICER_LOG_PRETTY", false),
	}
}

// Estimation maps the configuration to the estimation loop's parameters.
func (c *Config) Estimation() estimation.Config {
	return estimation.Config{
		Epsilon:   c.Epsilon,
		Alpha:     c.Alpha,
		Shots:     c.Shots,
		MaxDepth:  c.MaxDepth,
		MaxRounds: c.MaxRounds,
	}
}

// Validate checks the values the estimation loop does not cover itself.
func (c *Config) Validate() error {
	if err := c.Estimation().Validate(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d negative", c.Workers)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts %d must be positive", c.RetryAttempts)
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("retry delays %v/%v invalid", c.RetryBaseDelay, c.RetryMaxDelay)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
