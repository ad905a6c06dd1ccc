package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env        string `env:"ENVIRONMENT" yaml:"environment"`
	ServerPort int    `env:"SERVER_PORT" yaml:"server_port"`

	TargetURL     string        `env:"TARGET_URL" yaml:"target_url"`
	Bucket        string        `env:"BUCKET" yaml:"bucket"`
	CheckInterval time.Duration `env:"CHECK_INTERVAL" yaml:"check_interval"` // 0 disables the in-process ticker
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" yaml:"fetch_timeout"`

	PubSub struct {
		ProjectID string `env:"PUBSUB_PROJECT_ID" yaml:"project_id"`
		TopicID   string `env:"PUBSUB_TOPIC" yaml:"topic"`
	} `yaml:"pubsub"`

	Discord struct {
		Token       string `env:"DISCORD_TOKEN" yaml:"token"`
		ChannelID   string `env:"DISCORD_CHANNEL_ID" yaml:"channel_id"`
		ChannelName string `env:"DISCORD_CHANNEL_NAME" yaml:"channel_name"`
		APIBase     string `env:"DISCORD_API_BASE" yaml:"api_base"`
	} `yaml:"discord"`

	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN" yaml:"domain"`
		APIKey      string `env:"MAILGUN_API_KEY" yaml:"api_key"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM" yaml:"sender_from"`
		Recipient   string `env:"MAILGUN_RECIPIENT" yaml:"recipient"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" yaml:"timeout_secs"`
	} `yaml:"mailgun"`

	Store struct {
		Backend     string `env:"STORE_BACKEND" yaml:"backend"` // sqlite | postgres
		SQLitePath  string `env:"SQLITE_PATH" yaml:"sqlite_path"`
		DatabaseURL string `env:"DATABASE_URL" yaml:"database_url"`
		CacheSize   int    `env:"STORE_CACHE_SIZE" yaml:"cache_size"`
	} `yaml:"store"`
}

// ConfigError reports required settings that are missing or invalid.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) (*Config, error) {
	cfg, err := Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Sugar().Infow("Loaded config", "target", cfg.TargetURL, "bucket", cfg.Bucket, "store", cfg.Store.Backend)
	return cfg, nil
}

// Load reads the optional YAML file at path, then applies environment
// variables on top of it, then fills in defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.ServerPort == 0 {
		cfg.ServerPort = 8080
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.Discord.ChannelName == "" {
		cfg.Discord.ChannelName = "af1-bot"
	}
	if cfg.Discord.APIBase == "" {
		cfg.Discord.APIBase = "https://discord.com/api/v10"
	}
	if cfg.Mailgun.TimeoutSecs <= 0 {
		cfg.Mailgun.TimeoutSecs = 10
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "listingwatch.sqlite"
	}
	if cfg.Store.CacheSize <= 0 {
		cfg.Store.CacheSize = 16
	}
}

func (cfg *Config) Validate() error {
	var problems []string
	require := func(val, name string) {
		if val == "" {
			problems = append(problems, name+" must be set")
		}
	}

	require(cfg.TargetURL, "TARGET_URL")
	require(cfg.Bucket, "BUCKET")
	require(cfg.PubSub.ProjectID, "PUBSUB_PROJECT_ID")
	require(cfg.PubSub.TopicID, "PUBSUB_TOPIC")
	require(cfg.Discord.Token, "DISCORD_TOKEN")

	switch cfg.Store.Backend {
	case "sqlite":
	case "postgres":
		require(cfg.Store.DatabaseURL, "DATABASE_URL")
	default:
		problems = append(problems, fmt.Sprintf("STORE_BACKEND %q is not one of sqlite, postgres", cfg.Store.Backend))
	}

	if cfg.MailgunEnabled() {
		require(cfg.Mailgun.SenderFrom, "MAILGUN_SENDER_FROM")
		require(cfg.Mailgun.Recipient, "MAILGUN_RECIPIENT")
	}

	if len(problems) > 0 {
		return &ConfigError{problems}
	}
	return nil
}

// MailgunEnabled reports whether email delivery was configured.
func (cfg *Config) MailgunEnabled() bool {
	return cfg.Mailgun.Domain != "" && cfg.Mailgun.APIKey != ""
}
