package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// writeConfigFile marshals the given document into config.yaml in a temp
// working directory, since Load always reads from the current directory.
func writeConfigFile(t *testing.T, doc map[string]any) {
	t.Helper()

	data, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644); err != nil {
		t.Fatalf("failed to write config.yaml: %v", err)
	}
	t.Chdir(dir)
}

func TestLoad_Defaults(t *testing.T) {
	writeConfigFile(t, map[string]any{})

	cfg, err := Load("1.2.3")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Version != "1.2.3" {
		t.Errorf("Version = %q, want '1.2.3'", cfg.Version)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want '8080'", cfg.Port)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want derived from port", cfg.BaseURL)
	}
	if cfg.Database.Database != "promptwatch_engine" {
		t.Errorf("Database.Database = %q", cfg.Database.Database)
	}
	if cfg.Database.MaxConnections != 25 {
		t.Errorf("Database.MaxConnections = %d, want 25", cfg.Database.MaxConnections)
	}
	if cfg.Redis.ProbeTTL != 5*time.Minute {
		t.Errorf("Redis.ProbeTTL = %v, want 5m", cfg.Redis.ProbeTTL)
	}
	if cfg.Redis.Host != "" {
		t.Errorf("Redis.Host = %q, want empty (cache disabled)", cfg.Redis.Host)
	}
	if !cfg.Auth.EnableVerification {
		t.Error("Auth.EnableVerification should default to true")
	}
}

func TestLoad_YAMLValues(t *testing.T) {
	writeConfigFile(t, map[string]any{
		"port": "9090",
		"env":  "staging",
		"database": map[string]any{
			"host":     "db.internal",
			"database": "promptwatch_staging",
		},
		"redis": map[string]any{
			"host":      "cache.internal",
			"probe_ttl": "30s",
		},
	})

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want '9090'", cfg.Port)
	}
	if cfg.Env != "staging" {
		t.Errorf("Env = %q, want 'staging'", cfg.Env)
	}
	if cfg.BaseURL != "http://localhost:9090" {
		t.Errorf("BaseURL = %q, want derived from port 9090", cfg.BaseURL)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q", cfg.Database.Host)
	}
	if cfg.Redis.Host != "cache.internal" {
		t.Errorf("Redis.Host = %q", cfg.Redis.Host)
	}
	if cfg.Redis.ProbeTTL != 30*time.Second {
		t.Errorf("Redis.ProbeTTL = %v, want 30s", cfg.Redis.ProbeTTL)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	writeConfigFile(t, map[string]any{
		"port": "9090",
	})
	t.Setenv("PORT", "3000")
	t.Setenv("PGPASSWORD", "env_secret")
	t.Setenv("JWKS_ENDPOINTS", "https://issuer.example=https://issuer.example/jwks")

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, environment should override YAML", cfg.Port)
	}
	if cfg.Database.Password != "env_secret" {
		t.Errorf("Database.Password = %q, want value from PGPASSWORD", cfg.Database.Password)
	}
	if got := cfg.Auth.JWKSEndpoints["https://issuer.example"]; got != "https://issuer.example/jwks" {
		t.Errorf("JWKSEndpoints parsed %q", got)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := Load("test"); err == nil {
		t.Error("Load() should fail without config.yaml")
	}
}

func TestParseJWKSEndpoints(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "empty",
			input: "",
			want:  map[string]string{},
		},
		{
			name:  "single pair",
			input: "https://a.example=https://a.example/jwks",
			want:  map[string]string{"https://a.example": "https://a.example/jwks"},
		},
		{
			name:  "multiple pairs with spaces",
			input: "https://a.example=https://a.example/jwks, https://b.example=https://b.example/keys",
			want: map[string]string{
				"https://a.example": "https://a.example/jwks",
				"https://b.example": "https://b.example/keys",
			},
		},
		{
			name:  "malformed pair skipped",
			input: "not-a-pair,https://a.example=https://a.example/jwks",
			want:  map[string]string{"https://a.example": "https://a.example/jwks"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseJWKSEndpoints(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseJWKSEndpoints() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("parseJWKSEndpoints()[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "promptwatch",
		Password: "pw",
		Database: "promptwatch_engine",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=promptwatch password=pw dbname=promptwatch_engine sslmode=disable"
	if got := c.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
