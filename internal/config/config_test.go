package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "opsdesk" {
		t.Errorf("Database.Name = %q, want opsdesk", cfg.Database.Name)
	}
	if cfg.Database.MaxLifetime != 5*time.Minute {
		t.Errorf("Database.MaxLifetime = %v", cfg.Database.MaxLifetime)
	}
	if cfg.Lifecycle.StrictJobCompletion {
		t.Error("StrictJobCompletion should default to false")
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should be disabled without REDIS_ADDR")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("STRICT_JOB_COMPLETION", "true")
	t.Setenv("JWT_TOKEN_TTL", "90m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q", cfg.Server.Port)
	}
	if cfg.Database.MaxOpenConns != 7 {
		t.Errorf("MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if !cfg.Lifecycle.StrictJobCompletion {
		t.Error("StrictJobCompletion not read from env")
	}
	if cfg.Auth.TokenTTL != 90*time.Minute {
		t.Errorf("TokenTTL = %v", cfg.Auth.TokenTTL)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opsdesk.yaml")
	body := "database:\n  name: fromfile\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Name != "fromfile" {
		t.Errorf("Database.Name = %q", cfg.Database.Name)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for explicit missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing name", func(c *Config) { c.Database.Name = "" }, true},
		{"production short secret", func(c *Config) {
			c.Server.Environment = "production"
			c.Auth.JWTSecret = "short"
		}, true},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Host: "localhost", Name: "opsdesk"},
				Auth:     AuthConfig{TokenTTL: time.Hour},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
