package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8080
database:
  host: "localhost"
  port: 5432
  name: "repcoach"
  user: "repcoach"
  password: "secret"
  sslmode: "disable"
auth:
  api_key: "test-key-123"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "repcoach" {
		t.Errorf("database.name = %q, want %q", cfg.Database.Name, "repcoach")
	}
	if cfg.Auth.APIKey != "test-key-123" {
		t.Errorf("auth.api_key = %q, want %q", cfg.Auth.APIKey, "test-key-123")
	}
}

// TestEngineDefaults verifies the engine tuning defaults survive a config
// file that never mentions them.
func TestEngineDefaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.MinConfidence != 0.5 {
		t.Errorf("engine.min_confidence = %v, want 0.5", cfg.Engine.MinConfidence)
	}
	if cfg.Engine.Filter.MinCutoff != 1.0 || cfg.Engine.Filter.MaxCutoff != 10.0 {
		t.Errorf("filter cutoffs = (%v, %v), want (1, 10)", cfg.Engine.Filter.MinCutoff, cfg.Engine.Filter.MaxCutoff)
	}
	if cfg.Engine.GestureStabilityFrames != 10 {
		t.Errorf("gesture_stability_frames = %d, want 10", cfg.Engine.GestureStabilityFrames)
	}
}

// TestEngineOverride verifies YAML engine tuning replaces the defaults.
func TestEngineOverride(t *testing.T) {
	yaml := validYAML + `
engine:
  min_confidence: 0.7
  gesture_stability_frames: 5
  filter:
    min_cutoff: 0.5
    max_cutoff: 20.0
    beta: 0.1
    d_cutoff: 1.0
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.MinConfidence != 0.7 {
		t.Errorf("engine.min_confidence = %v, want 0.7", cfg.Engine.MinConfidence)
	}
	if cfg.Engine.GestureStabilityFrames != 5 {
		t.Errorf("gesture_stability_frames = %d, want 5", cfg.Engine.GestureStabilityFrames)
	}
	if cfg.Engine.Filter.Beta != 0.1 {
		t.Errorf("filter.beta = %v, want 0.1", cfg.Engine.Filter.Beta)
	}
}

// TestEnvOverride verifies that REPCOACH_ env vars take precedence over YAML values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("REPCOACH_DB_HOST", "override-host")
	t.Setenv("REPCOACH_DB_PORT", "9999")
	t.Setenv("REPCOACH_AUTH_API_KEY", "env-key")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "override-host" {
		t.Errorf("database.host = %q, want %q", cfg.Database.Host, "override-host")
	}
	if cfg.Database.Port != 9999 {
		t.Errorf("database.port = %d, want 9999", cfg.Database.Port)
	}
	if cfg.Auth.APIKey != "env-key" {
		t.Errorf("auth.api_key = %q, want %q", cfg.Auth.APIKey, "env-key")
	}
}

// TestValidateMissing verifies required fields are enforced.
func TestValidateMissing(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no api key", `
server:
  port: 8080
database:
  host: localhost
  port: 5432
  name: repcoach
  user: repcoach
`},
		{"no db host", `
server:
  port: 8080
database:
  port: 5432
  name: repcoach
  user: repcoach
auth:
  api_key: k
`},
		{"bad confidence", validYAML + `
engine:
  min_confidence: 1.5
`},
		{"max below min cutoff", validYAML + `
engine:
  filter:
    min_cutoff: 5.0
    max_cutoff: 1.0
`},
		{"tailscale without hostname", validYAML + `
tailscale:
  enabled: true
`},
	}
	for _, tc := range cases {
		if _, err := Load(writeTemp(t, tc.yaml)); err == nil {
			t.Errorf("%s: accepted", tc.name)
		}
	}
}

// TestDSN verifies the connection string layout.
func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "repcoach", User: "u", Password: "p"}
	want := "postgres://u:p@db:5432/repcoach?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
