// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	CallbackRateLimit  int           `yaml:"callback_rate_limit"` // per source IP per window, 0 = off
	CallbackRateWindow time.Duration `yaml:"callback_rate_window"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"` // apply embedded migrations on start
}

type RedisConfig struct {
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

type EcoCashConfig struct {
	APIURL    string        `yaml:"api_url"`
	ShortCode string        `yaml:"short_code"`
	USSDCode  string        `yaml:"ussd_code"`
	Currency  string        `yaml:"currency"`
	Timeout   time.Duration `yaml:"timeout"`
	RPS       float64       `yaml:"rps"` // outbound request rate, 0 = unlimited
	Burst     int           `yaml:"burst"`
}

type NotifyConfig struct {
	WebhookURL     string        `yaml:"webhook_url"`
	TelegramToken  string        `yaml:"telegram_token"`
	TelegramChatID int64         `yaml:"telegram_chat_id"`
	Timeout        time.Duration `yaml:"timeout"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type ReconcilerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Interval     time.Duration `yaml:"interval"`
	StaleAfter   time.Duration `yaml:"stale_after"`
	AbandonAfter time.Duration `yaml:"abandon_after"`
	BatchSize    int           `yaml:"batch_size"`
}

type InitiationConfig struct {
	RateLimit  int           `yaml:"rate_limit"` // pushes per account per window, 0 = off
	RateWindow time.Duration `yaml:"rate_window"`
	LockTTL    time.Duration `yaml:"lock_ttl"`
}

type SecurityConfig struct {
	EncryptionKey string            `yaml:"encryption_key"`
	KeyID         string            `yaml:"key_id"`
	RetiredKeys   map[string]string `yaml:"retired_keys"` // key id -> key, decrypt only
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	EcoCash    EcoCashConfig    `yaml:"ecocash"`
	Notify     NotifyConfig     `yaml:"notify"`
	Auth       AuthConfig       `yaml:"auth"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Initiation InitiationConfig `yaml:"initiation"`
	Security   SecurityConfig   `yaml:"security"`
	Locale     string           `yaml:"locale"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, then applies environment overrides,
// defaults and validation. A missing file is allowed when the environment
// supplies the required values.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.EcoCash.APIURL, "ECOCASH_API_URL")
	set(&cfg.Auth.JWTSecret, "JWT_SECRET")
	set(&cfg.Notify.WebhookURL, "NOTIFY_WEBHOOK_URL")
	set(&cfg.Notify.TelegramToken, "TELEGRAM_TOKEN")
	set(&cfg.Security.EncryptionKey, "ENCRYPTION_KEY")
	set(&cfg.HTTP.Addr, "HTTP_ADDR")
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.HTTP.ReadTimeout = orDefault(cfg.HTTP.ReadTimeout, 15*time.Second)
	cfg.HTTP.WriteTimeout = orDefault(cfg.HTTP.WriteTimeout, 60*time.Second)
	cfg.HTTP.RequestTimeout = orDefault(cfg.HTTP.RequestTimeout, 45*time.Second)
	cfg.HTTP.ShutdownTimeout = orDefault(cfg.HTTP.ShutdownTimeout, 10*time.Second)
	cfg.HTTP.CallbackRateWindow = orDefault(cfg.HTTP.CallbackRateWindow, time.Minute)
	if cfg.Security.KeyID == "" {
		cfg.Security.KeyID = "v1"
	}
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = orDefault(cfg.Redis.TTL, time.Hour)
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "billing:"
	}

	if cfg.EcoCash.ShortCode == "" {
		cfg.EcoCash.ShortCode = "36174"
	}
	if cfg.EcoCash.USSDCode == "" {
		cfg.EcoCash.USSDCode = "*151#"
	}
	if cfg.EcoCash.Currency == "" {
		cfg.EcoCash.Currency = "USD"
	}
	cfg.EcoCash.Timeout = orDefault(cfg.EcoCash.Timeout, 30*time.Second)
	if cfg.EcoCash.Burst <= 0 {
		cfg.EcoCash.Burst = 5
	}

	cfg.Notify.Timeout = orDefault(cfg.Notify.Timeout, 10*time.Second)
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = 256
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "socials-billing"
	}
	cfg.Auth.TokenTTL = orDefault(cfg.Auth.TokenTTL, 24*time.Hour)

	cfg.Reconciler.Interval = orDefault(cfg.Reconciler.Interval, time.Minute)
	cfg.Reconciler.StaleAfter = orDefault(cfg.Reconciler.StaleAfter, 5*time.Minute)
	cfg.Reconciler.AbandonAfter = orDefault(cfg.Reconciler.AbandonAfter, 24*time.Hour)
	if cfg.Reconciler.BatchSize <= 0 {
		cfg.Reconciler.BatchSize = 50
	}

	cfg.Initiation.RateWindow = orDefault(cfg.Initiation.RateWindow, time.Minute)
	cfg.Initiation.LockTTL = orDefault(cfg.Initiation.LockTTL, cfg.EcoCash.Timeout+5*time.Second)
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	switch {
	case c.EcoCash.APIURL == "" && !c.Runtime.Dev:
		return errors.New("ecocash.api_url is required")
	case c.EcoCash.APIURL != "" && !strings.HasSuffix(c.EcoCash.APIURL, "/"):
		return fmt.Errorf("ecocash.api_url must end with '/': %q", c.EcoCash.APIURL)
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwt_secret must be at least 16 bytes")
	}
	if c.Reconciler.AbandonAfter <= c.Reconciler.StaleAfter {
		return errors.New("reconciler.abandon_after must exceed reconciler.stale_after")
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == 0 {
		return errors.New("notify.telegram_chat_id is required with a telegram token")
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
