package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notepad.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
port: 8080
documents_dir: /var/lib/notepad
public_url: https://pad.example
session_expiry: 30m
dev_mode: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8080 || cfg.DocumentsDir != "/var/lib/notepad" || cfg.PublicURL != "https://pad.example" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.SessionExpiry != 30*time.Minute {
		t.Errorf("expected 30m expiry, got %s", cfg.SessionExpiry)
	}
	if !cfg.DevMode {
		t.Error("expected dev mode")
	}
	// untouched keys keep their defaults
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "port: 8080\nlog_level: warn\n")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_EXPIRY", "2h")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected env port 9090, got %d", cfg.Port)
	}
	if cfg.SessionExpiry != 2*time.Hour {
		t.Errorf("expected 2h expiry, got %s", cfg.SessionExpiry)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected file log level, got %q", cfg.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeFile(t, "port: [")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}

	t.Setenv("PORT", "not-a-number")
	if _, err := Load(""); err == nil {
		t.Error("expected error for malformed env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero port", func(c *Config) { c.Port = 0 }, "port"},
		{"large port", func(c *Config) { c.Port = 70000 }, "port"},
		{"no documents dir", func(c *Config) { c.DocumentsDir = "" }, "documents_dir"},
		{"zero expiry", func(c *Config) { c.SessionExpiry = 0 }, "session_expiry"},
		{"relative public url", func(c *Config) { c.PublicURL = "pad.example" }, "public_url"},
		{"ftp public url", func(c *Config) { c.PublicURL = "ftp://pad.example" }, "public_url"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	if cfg.Addr() != ":3000" {
		t.Errorf("expected ':3000', got %q", cfg.Addr())
	}
	cfg.Host = "127.0.0.1"
	if cfg.Addr() != "127.0.0.1:3000" {
		t.Errorf("expected '127.0.0.1:3000', got %q", cfg.Addr())
	}
}
