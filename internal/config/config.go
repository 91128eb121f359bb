// Package config provides configuration loading from an optional YAML file
// and environment variables. Environment variables always win over the
// file; secrets can be supplied through file mounts (Docker/K8s secrets).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selects the Remote port implementation.
type Backend string

const (
	BackendCloud  Backend = "cloud"
	BackendDocker Backend = "docker"
)

// ServiceConfig holds configuration for the gateway service.
//
// Both credentials are opaque strings read once here and handed to
// constructors; business logic never reaches into the environment. The
// caller credential and the remote credential are independent and must
// never be compared against each other or logged.
type ServiceConfig struct {
	Port              string
	MetricsPort       string
	CallerCredential  string        // expected bearer credential of inbound callers
	Backend           Backend       // remote port implementation
	ShutdownDrainWait time.Duration // time to wait for load balancer to drain (0 to skip)
	MaxPageSize       int           // upper bound on list_jobs limit
	MaxInstanceCount  int           // upper bound on submit_job instance_count
}

// fileConfig mirrors ServiceConfig for the optional YAML config file.
// Credentials deliberately have no file field; they arrive via env or
// secret mounts only.
type fileConfig struct {
	Port              string `yaml:"port"`
	MetricsPort       string `yaml:"metrics_port"`
	Backend           string `yaml:"backend"`
	ShutdownDrainWait string `yaml:"shutdown_drain_wait"`
	MaxPageSize       int    `yaml:"max_page_size"`
	MaxInstanceCount  int    `yaml:"max_instance_count"`
}

// LoadServiceConfig loads service configuration. The file named by
// CONFIG_FILE (if any) supplies defaults; environment variables override.
func LoadServiceConfig() (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:              "8080",
		MetricsPort:       "9090",
		Backend:           BackendCloud,
		ShutdownDrainWait: 5 * time.Second,
		MaxPageSize:       100,
		MaxInstanceCount:  10000,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.Port = GetEnv("PORT", cfg.Port)
	cfg.MetricsPort = GetEnv("METRICS_PORT", cfg.MetricsPort)
	cfg.ShutdownDrainWait = GetDurationEnv("SHUTDOWN_DRAIN_WAIT", cfg.ShutdownDrainWait)
	cfg.MaxPageSize = GetIntEnv("MAX_PAGE_SIZE", cfg.MaxPageSize)
	cfg.MaxInstanceCount = GetIntEnv("MAX_INSTANCE_COUNT", cfg.MaxInstanceCount)

	if backend := os.Getenv("REMOTE_BACKEND"); backend != "" {
		cfg.Backend = Backend(backend)
	}
	switch cfg.Backend {
	case BackendCloud, BackendDocker:
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}

	cfg.CallerCredential = GetSecretEnv("GATEWAY_AUTH_TOKEN")

	return cfg, nil
}

// applyFile overlays YAML file values onto cfg.
func applyFile(cfg *ServiceConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.MetricsPort != "" {
		cfg.MetricsPort = fc.MetricsPort
	}
	if fc.Backend != "" {
		cfg.Backend = Backend(fc.Backend)
	}
	if fc.ShutdownDrainWait != "" {
		d, err := time.ParseDuration(fc.ShutdownDrainWait)
		if err != nil {
			return fmt.Errorf("parse shutdown_drain_wait: %w", err)
		}
		cfg.ShutdownDrainWait = d
	}
	if fc.MaxPageSize > 0 {
		cfg.MaxPageSize = fc.MaxPageSize
	}
	if fc.MaxInstanceCount > 0 {
		cfg.MaxInstanceCount = fc.MaxInstanceCount
	}
	return nil
}
