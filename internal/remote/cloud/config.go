package cloud

import (
	"time"

	"computegw/internal/config"
	"computegw/pkg/circuitbreaker"
)

// Config holds configuration for the cloud adapter.
type Config struct {
	BaseURL    string        // remote compute API base URL
	Credential string        // remote-facing bearer credential, never exposed to callers
	Timeout    time.Duration // per-request timeout (default: 30s)
	MaxRetries int           // retry budget for idempotent reads (default: 3)
	Breaker    circuitbreaker.Config
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	return c
}

// LoadConfigFromEnv loads cloud adapter configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		BaseURL:    config.GetEnv("REMOTE_API_URL", ""),
		Credential: config.GetSecretEnv("REMOTE_API_TOKEN"),
		Timeout:    config.GetDurationEnv("REMOTE_TIMEOUT", 30*time.Second),
		MaxRetries: config.GetIntEnv("REMOTE_MAX_RETRIES", 3),
		Breaker: circuitbreaker.Config{
			Threshold: config.GetIntEnv("REMOTE_BREAKER_THRESHOLD", 5),
			Cooldown:  config.GetDurationEnv("REMOTE_BREAKER_COOLDOWN", 30*time.Second),
		},
	}
}
