package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("PROMPTLAB_TEST_VAR", "hello")
	defer os.Unsetenv("PROMPTLAB_TEST_VAR")

	tests := []struct {
		input    string
		expected string
	}{
		{"${PROMPTLAB_TEST_VAR}", "hello"},
		{"${PROMPTLAB_TEST_VAR:default}", "hello"},
		{"${PROMPTLAB_UNSET_VAR:fallback}", "fallback"},
		{"${PROMPTLAB_UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
		{"prefix-${PROMPTLAB_TEST_VAR}-suffix", "prefix-hello-suffix"},
	}

	for _, tt := range tests {
		got := expandEnvVars(tt.input)
		if got != tt.expected {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "promptlab-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	content := `
server:
  port: 9999
limits:
  max_test_samples: 500
  daily_experiments: 250
providers:
  openai:
    base_url: "http://localhost:9001/v1"
    timeout: 10s
`
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()

	var cfg Config
	if err := LoadFile(tmpFile.Name(), &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Limits.MaxTestSamples != 500 || cfg.Limits.DailyExperiments != 250 {
		t.Errorf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.Providers.OpenAI.BaseURL != "http://localhost:9001/v1" {
		t.Errorf("unexpected openai base url: %s", cfg.Providers.OpenAI.BaseURL)
	}
	if cfg.Providers.OpenAI.Timeout != 10*time.Second {
		t.Errorf("unexpected openai timeout: %v", cfg.Providers.OpenAI.Timeout)
	}
}

func TestLoadFile_WithEnvVars(t *testing.T) {
	os.Setenv("PROMPTLAB_TEST_DB_PASSWORD", "s3cret")
	defer os.Unsetenv("PROMPTLAB_TEST_DB_PASSWORD")

	tmpFile, err := os.CreateTemp("", "promptlab-config-env-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	content := `
database:
  host: "${PROMPTLAB_TEST_DB_HOST:db.internal}"
  password: "${PROMPTLAB_TEST_DB_PASSWORD}"
`
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()

	var cfg Config
	if err := LoadFile(tmpFile.Name(), &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected host db.internal (default), got %s", cfg.Database.Host)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("expected password from env, got %s", cfg.Database.Password)
	}
}

func TestLoader_LoadKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 8080
`
	if err := os.WriteFile(filepath.Join(dir, "server.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(dir, slog.Default())
	if err := loader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := loader.Config()
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	// Fields the file does not set keep their defaults.
	if cfg.Limits.MaxPromptLength != 10000 {
		t.Errorf("max prompt length = %d, want default 10000", cfg.Limits.MaxPromptLength)
	}
	if cfg.Providers.Anthropic.BaseURL != "https://api.anthropic.com/v1" {
		t.Errorf("anthropic base url = %s", cfg.Providers.Anthropic.BaseURL)
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Name:     "promptlab",
		User:     "promptlab",
		Password: "pw",
	}
	want := "postgres://promptlab:pw@localhost:5432/promptlab?sslmode=disable"
	if got := db.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
