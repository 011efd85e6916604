package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Proxy     ProxyConfig
	Download  DownloadConfig
	Panel     PanelConfig
	Host      HostConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ProxyConfig holds local proxy configuration.
type ProxyConfig struct {
	Upstream        string   `envconfig:"UPSTREAM" default:"https://start.spring.io" validate:"required,url"`
	Host            string   `envconfig:"PROXY_HOST" default:"127.0.0.1" validate:"required,ip"`
	TriggerPattern  string   `envconfig:"DOWNLOAD_TRIGGER" default:"/starter.zip" validate:"required,startswith=/"`
	TriggerMode     string   `envconfig:"DOWNLOAD_TRIGGER_MODE" default:"prefix" validate:"oneof=prefix exact glob"`
	ProjectMarker   string   `envconfig:"PROJECT_MARKER" default:"baseDir" validate:"required"`
	FollowRedirects bool     `envconfig:"FOLLOW_REDIRECTS" default:"true"`
	StripHeaders    []string `envconfig:"STRIP_HEADERS" default:"x-frame-options,X-Frame-Options,content-security-policy,Content-Security-Policy" validate:"min=1,dive,required"`
}

// DownloadConfig holds archive download configuration.
type DownloadConfig struct {
	Timeout        time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"0s" validate:"gte=0"`
	RetryCount     int           `envconfig:"DOWNLOAD_RETRIES" default:"0" validate:"gte=0"`
	MaxConcurrent  int64         `envconfig:"DOWNLOAD_CONCURRENCY" default:"1" validate:"gte=1"`
	SuppressErrors bool          `envconfig:"SUPPRESS_DOWNLOAD_ERRORS" default:"false"`
	UserAgent      string        `envconfig:"DOWNLOAD_USER_AGENT" default:"webview-iframe/1.0"`
}

// PanelConfig holds panel presentation configuration.
type PanelConfig struct {
	ViewType  string `envconfig:"PANEL_VIEW_TYPE" default:"webview-iframe" validate:"required"`
	Title     string `envconfig:"PANEL_TITLE" default:"Webview iframe" validate:"required"`
	MediaDir  string `envconfig:"PANEL_MEDIA_DIR" default:"media" validate:"required"`
	AutoStart bool   `envconfig:"PANEL_AUTOSTART" default:"true"`
}

// HostConfig holds desktop host configuration.
type HostConfig struct {
	ControlHost     string        `envconfig:"HOST_CONTROL_HOST" default:"127.0.0.1" validate:"required,ip"`
	ControlPort     int           `envconfig:"HOST_CONTROL_PORT" default:"0" validate:"gte=0,lte=65535"`
	EditorCommand   string        `envconfig:"HOST_EDITOR" default:"code" validate:"required"`
	NewWindowFlag   string        `envconfig:"HOST_NEW_WINDOW_FLAG" default:"--new-window"`
	BrowserCommand  string        `envconfig:"HOST_BROWSER"`
	OpenBrowser     bool          `envconfig:"HOST_OPEN_BROWSER" default:"true"`
	ExtractDir      string        `envconfig:"HOST_EXTRACT_DIR"`
	DisconnectGrace time.Duration `envconfig:"HOST_DISCONNECT_GRACE" default:"2s" validate:"gte=0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds control API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"5" validate:"gte=1"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"10" validate:"gte=1"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadDotEnv loads variables from the given .env files without overriding
// variables already present in the environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if file == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Proxy: ProxyConfig{
			Upstream:        "https://start.spring.io",
			Host:            "127.0.0.1",
			TriggerPattern:  "/starter.zip",
			TriggerMode:     "prefix",
			ProjectMarker:   "baseDir",
			FollowRedirects: true,
			StripHeaders: []string{
				"x-frame-options",
				"X-Frame-Options",
				"content-security-policy",
				"Content-Security-Policy",
			},
		},
		Download: DownloadConfig{
			MaxConcurrent: 1,
			UserAgent:     "webview-iframe/1.0",
		},
		Panel: PanelConfig{
			ViewType:  "webview-iframe",
			Title:     "Webview iframe",
			MediaDir:  "media",
			AutoStart: true,
		},
		Host: HostConfig{
			ControlHost:     "127.0.0.1",
			EditorCommand:   "code",
			NewWindowFlag:   "--new-window",
			OpenBrowser:     true,
			DisconnectGrace: 2 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
			Enabled:           true,
		},
	}
}
