package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved reviewbooth configuration.
type Config struct {
	Webhook WebhookConfig `mapstructure:"webhook" yaml:"webhook"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Queue   QueueConfig   `mapstructure:"queue" yaml:"queue"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// WebhookConfig points at the workflow endpoint. An empty URL is allowed:
// connection checks report disconnected and submissions land in the retry
// queue.
type WebhookConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// CaptureConfig selects the capture backend and its input devices.
type CaptureConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`           // "ffmpeg", "synthetic", "auto"
	Binary      string `mapstructure:"binary" yaml:"binary"`             // ffmpeg executable
	AudioFormat string `mapstructure:"audio_format" yaml:"audio_format"` // input demuxer, e.g. "pulse"
	AudioInput  string `mapstructure:"audio_input" yaml:"audio_input"`
	VideoFormat string `mapstructure:"video_format" yaml:"video_format"` // input demuxer, e.g. "v4l2"
	VideoInput  string `mapstructure:"video_input" yaml:"video_input"`
	Width       int    `mapstructure:"width" yaml:"width"`
	Height      int    `mapstructure:"height" yaml:"height"`
	SampleRate  int    `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// QueueConfig locates the durable retry store.
type QueueConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

var defaultConfig = Config{
	Capture: CaptureConfig{
		Backend:     "auto",
		Binary:      "ffmpeg",
		AudioFormat: "pulse",
		AudioInput:  "default",
		VideoFormat: "v4l2",
		VideoInput:  "/dev/video0",
		Width:       640,
		Height:      480,
		SampleRate:  48000,
	},
	Queue: QueueConfig{
		Path: filepath.Join(os.Getenv("HOME"), ".local", "share", "reviewbooth", "retry.db"),
	},
	Server: ServerConfig{
		Port: 8985,
	},
}

// Load reads an optional YAML config file layered under REVIEWBOOTH_*
// environment variables. A missing file leaves defaults and environment in
// effect; an unreadable file is an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("webhook.url", defaultConfig.Webhook.URL)
	v.SetDefault("capture.backend", defaultConfig.Capture.Backend)
	v.SetDefault("capture.binary", defaultConfig.Capture.Binary)
	v.SetDefault("capture.audio_format", defaultConfig.Capture.AudioFormat)
	v.SetDefault("capture.audio_input", defaultConfig.Capture.AudioInput)
	v.SetDefault("capture.video_format", defaultConfig.Capture.VideoFormat)
	v.SetDefault("capture.video_input", defaultConfig.Capture.VideoInput)
	v.SetDefault("capture.width", defaultConfig.Capture.Width)
	v.SetDefault("capture.height", defaultConfig.Capture.Height)
	v.SetDefault("capture.sample_rate", defaultConfig.Capture.SampleRate)
	v.SetDefault("queue.path", defaultConfig.Queue.Path)
	v.SetDefault("server.port", defaultConfig.Server.Port)

	v.SetEnvPrefix("REVIEWBOOTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configFile); statErr == nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Queue.Path = expandPath(cfg.Queue.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate rejects values the rest of the system cannot work with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Capture.Backend) {
	case "ffmpeg", "synthetic", "auto":
	default:
		return fmt.Errorf("capture.backend must be 'ffmpeg', 'synthetic' or 'auto', got: %s", c.Capture.Backend)
	}

	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return fmt.Errorf("capture dimensions must be positive, got: %dx%d", c.Capture.Width, c.Capture.Height)
	}

	if c.Capture.SampleRate <= 0 {
		return fmt.Errorf("capture.sample_rate must be positive, got: %d", c.Capture.SampleRate)
	}

	if c.Queue.Path == "" {
		return fmt.Errorf("queue.path is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port)
	}

	if c.Webhook.URL != "" &&
		!strings.HasPrefix(c.Webhook.URL, "http://") &&
		!strings.HasPrefix(c.Webhook.URL, "https://") {
		return fmt.Errorf("webhook.url must be an http(s) URL, got: %s", c.Webhook.URL)
	}

	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
