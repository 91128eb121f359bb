package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadServiceConfig_Defaults(t *testing.T) {
	_, err := LoadServiceConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadServiceConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8181")
	t.Setenv("METRICS_PORT", "9191")
	t.Setenv("REMOTE_BACKEND", "docker")
	t.Setenv("SHUTDOWN_DRAIN_WAIT", "10s")
	t.Setenv("MAX_PAGE_SIZE", "50")
	t.Setenv("GATEWAY_AUTH_TOKEN", "caller-secret")

	cfg, err := LoadServiceConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8181" {
		t.Errorf("port = %q, want 8181", cfg.Port)
	}
	if cfg.MetricsPort != "9191" {
		t.Errorf("metrics port = %q, want 9191", cfg.MetricsPort)
	}
	if cfg.Backend != BackendDocker {
		t.Errorf("backend = %q, want docker", cfg.Backend)
	}
	if cfg.ShutdownDrainWait != 10*time.Second {
		t.Errorf("drain wait = %v, want 10s", cfg.ShutdownDrainWait)
	}
	if cfg.MaxPageSize != 50 {
		t.Errorf("max page size = %d, want 50", cfg.MaxPageSize)
	}
	if cfg.CallerCredential != "caller-secret" {
		t.Errorf("caller credential not loaded from env")
	}
}

func TestLoadServiceConfig_UnknownBackend(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "mainframe")

	if _, err := LoadServiceConfig(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadServiceConfig_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := "port: \"7070\"\nbackend: docker\nshutdown_drain_wait: 2s\nmax_page_size: 25\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadServiceConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("port = %q, want 7070", cfg.Port)
	}
	if cfg.Backend != BackendDocker {
		t.Errorf("backend = %q, want docker", cfg.Backend)
	}
	if cfg.ShutdownDrainWait != 2*time.Second {
		t.Errorf("drain wait = %v, want 2s", cfg.ShutdownDrainWait)
	}
	if cfg.MaxPageSize != 25 {
		t.Errorf("max page size = %d, want 25", cfg.MaxPageSize)
	}
}

func TestLoadServiceConfig_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte("port: \"7070\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6060")

	cfg, err := LoadServiceConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "6060" {
		t.Errorf("port = %q, want env value 6060", cfg.Port)
	}
}

func TestGetSecretEnv_FileTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOME_TOKEN", "from-env")
	t.Setenv("SOME_TOKEN_FILE", path)

	if got := GetSecretEnv("SOME_TOKEN"); got != "from-file" {
		t.Errorf("GetSecretEnv = %q, want from-file (trimmed)", got)
	}
}

func TestGetSecretEnv_MissingFile(t *testing.T) {
	t.Setenv("SOME_TOKEN_FILE", "/nonexistent/secret")

	if got := GetSecretEnv("SOME_TOKEN"); got != "" {
		t.Errorf("GetSecretEnv = %q, want empty for missing file", got)
	}
}

func TestGetDurationEnv_Invalid(t *testing.T) {
	t.Setenv("SOME_DURATION", "not-a-duration")

	if got := GetDurationEnv("SOME_DURATION", 3*time.Second); got != 3*time.Second {
		t.Errorf("GetDurationEnv = %v, want default", got)
	}
}
