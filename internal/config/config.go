package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// BaseURL is the externally visible URL, used for the client bootstrap api_url
	BaseURL string `yaml:"base_url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	// APIKey authorizes admin endpoints directly, bypassing user sessions
	APIKey string `yaml:"api_key"`
	// NonceSecret signs the anti-forgery nonce handed to the frontend.
	// When empty, public endpoints skip the nonce check.
	NonceSecret string        `yaml:"nonce_secret"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

type WebhookConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SMTPAddr string `yaml:"smtp_addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	UseTLS   bool   `yaml:"use_tls"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8090"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8090"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/leadpop/leadpop.db"
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 24 * time.Hour
	}
	if cfg.Webhook.Timeout == 0 {
		cfg.Webhook.Timeout = 15 * time.Second
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9097"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Webhook.Enabled {
		if cfg.Webhook.URL == "" {
			return fmt.Errorf("webhook.url is required when webhook is enabled")
		}
		u, err := url.Parse(cfg.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("webhook.url must be an http(s) URL")
		}
	}
	if cfg.Notify.Enabled {
		if cfg.Notify.SMTPAddr == "" {
			return fmt.Errorf("notify.smtp_addr is required when notify is enabled")
		}
		if cfg.Notify.From == "" || cfg.Notify.To == "" {
			return fmt.Errorf("notify.from and notify.to are required when notify is enabled")
		}
	}
	if cfg.Auth.NonceSecret != "" && len(cfg.Auth.NonceSecret) < 32 {
		return fmt.Errorf("auth.nonce_secret must be at least 32 characters")
	}
	return nil
}
