package docker

import (
	"path/filepath"

	"computegw/internal/config"
)

// Config holds configuration for the Docker backend.
type Config struct {
	Image      string // container image jobs run (default: busybox:stable)
	Command    string // shell command executed inside the container
	ResultsDir string // host directory holding per-job result files
}

func (c Config) withDefaults() Config {
	if c.Image == "" {
		c.Image = "busybox:stable"
	}
	if c.Command == "" {
		c.Command = "sleep 1"
	}
	if c.ResultsDir == "" {
		c.ResultsDir = filepath.Join("/tmp", "computegw-results")
	}
	return c
}

// LoadConfigFromEnv loads Docker backend configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		Image:      config.GetEnv("DOCKER_JOB_IMAGE", ""),
		Command:    config.GetEnv("DOCKER_JOB_COMMAND", ""),
		ResultsDir: config.GetEnv("DOCKER_RESULTS_DIR", ""),
	}
}
