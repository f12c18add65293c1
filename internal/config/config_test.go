package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file failed: %v", err)
	}

	if cfg.Webhook.URL != "" {
		t.Errorf("Expected empty webhook URL by default, got %q", cfg.Webhook.URL)
	}
	if cfg.Capture.Backend != "auto" {
		t.Errorf("Expected backend 'auto', got %q", cfg.Capture.Backend)
	}
	if cfg.Capture.Binary != "ffmpeg" {
		t.Errorf("Expected binary 'ffmpeg', got %q", cfg.Capture.Binary)
	}
	if cfg.Capture.SampleRate != 48000 {
		t.Errorf("Expected sample rate 48000, got %d", cfg.Capture.SampleRate)
	}
	if cfg.Server.Port != 8985 {
		t.Errorf("Expected port 8985, got %d", cfg.Server.Port)
	}
	if cfg.Queue.Path == "" {
		t.Error("Expected a default queue path")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviewbooth.yaml")
	content := `webhook:
  url: https://hooks.example.com/review
capture:
  backend: synthetic
queue:
  path: /tmp/reviewbooth-test.db
server:
  port: 9100
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Webhook.URL != "https://hooks.example.com/review" {
		t.Errorf("Expected webhook URL from file, got %q", cfg.Webhook.URL)
	}
	if cfg.Capture.Backend != "synthetic" {
		t.Errorf("Expected backend 'synthetic', got %q", cfg.Capture.Backend)
	}
	if cfg.Queue.Path != "/tmp/reviewbooth-test.db" {
		t.Errorf("Expected queue path from file, got %q", cfg.Queue.Path)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Expected port 9100, got %d", cfg.Server.Port)
	}
	// Unlisted keys keep their defaults.
	if cfg.Capture.AudioFormat != "pulse" {
		t.Errorf("Expected default audio format 'pulse', got %q", cfg.Capture.AudioFormat)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REVIEWBOOTH_WEBHOOK_URL", "https://env.example.com/hook")
	t.Setenv("REVIEWBOOTH_CAPTURE_BACKEND", "synthetic")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Webhook.URL != "https://env.example.com/hook" {
		t.Errorf("Expected webhook URL from environment, got %q", cfg.Webhook.URL)
	}
	if cfg.Capture.Backend != "synthetic" {
		t.Errorf("Expected backend from environment, got %q", cfg.Capture.Backend)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file should fall back to defaults, got: %v", err)
	}
	if cfg.Capture.Backend != "auto" {
		t.Errorf("Expected default backend 'auto', got %q", cfg.Capture.Backend)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("webhook: [not: closed"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed config file")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir failed: %v", err)
	}

	expanded := expandPath("~/reviews/retry.db")
	if !strings.HasPrefix(expanded, home) {
		t.Errorf("Expected expanded path under %q, got %q", home, expanded)
	}

	absolute := expandPath("/var/lib/reviewbooth/retry.db")
	if absolute != "/var/lib/reviewbooth/retry.db" {
		t.Errorf("Expected absolute path unchanged, got %q", absolute)
	}
}
