package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := defaultConfig
	cfg.Queue.Path = "/tmp/reviewbooth-test.db"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got: %v", err)
	}
}

func TestValidateBackend(t *testing.T) {
	for _, backend := range []string{"ffmpeg", "synthetic", "auto", "FFmpeg"} {
		cfg := validConfig()
		cfg.Capture.Backend = backend
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected backend %q to validate, got: %v", backend, err)
		}
	}

	cfg := validConfig()
	cfg.Capture.Backend = "gstreamer"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "capture.backend") {
		t.Errorf("Expected backend error, got: %v", err)
	}
}

func TestValidateDimensions(t *testing.T) {
	cfg := validConfig()
	cfg.Capture.Width = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero width")
	}

	cfg = validConfig()
	cfg.Capture.Height = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for negative height")
	}
}

func TestValidateSampleRate(t *testing.T) {
	cfg := validConfig()
	cfg.Capture.SampleRate = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestValidateQueuePath(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for empty queue path")
	}
}

func TestValidatePort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := validConfig()
		cfg.Server.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected error for port %d", port)
		}
	}
}

func TestValidateWebhookURL(t *testing.T) {
	cfg := validConfig()
	cfg.Webhook.URL = "ftp://example.com/hook"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for non-http webhook URL")
	}

	cfg.Webhook.URL = "http://localhost:5678/webhook/review"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected http URL to validate, got: %v", err)
	}

	cfg.Webhook.URL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected empty URL to validate, got: %v", err)
	}
}
