package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const envPrefix = "SW"

var (
	ErrEmptyCookie  = errors.New("error getting SW_COOKIE: variable not specified or contains an empty string")
	ErrEmptyWebhook = errors.New("error getting SW_WEBHOOK_URL: variable not specified or contains an empty string")
	ErrInvalid      = errors.New("invalid configuration")
)

var telegramTokenRegex = regexp.MustCompile(`^\d{3,20}:[a-zA-Z0-9_-]{30,50}$`) //nolint:gochecknoglobals // compiled once

type Config struct {
	Env         string `env:"ENV" validate:"required"` // Env is the current environment: local, development, production.
	Cookie      string `env:"COOKIE" validate:"required"`
	WebhookURL  string `env:"WEBHOOK_URL" validate:"required,url"`
	BaseURL     string `env:"BASE_URL" validate:"required,url"`
	UserAgent   string `env:"USER_AGENT"`
	StoragePath string `env:"STORAGE_PATH" validate:"required"`
	CDN         CDN
	Crawl       Crawl
	Retention   int    `env:"SNAPSHOT_RETENTION" validate:"min=1"`
	Schedule    string `env:"SCHEDULE" validate:"omitempty,cron_spec"` // Schedule is a cron spec; empty runs once.
	Tg          Telegram
}

type CDN struct {
	BaseURL string `env:"CDN_BASE_URL" validate:"required,url"`
	Key     string `env:"CDN_KEY" validate:"required"`
}

type Crawl struct {
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" validate:"gt=0"`
	DetailWorkers     int           `env:"DETAIL_WORKERS" validate:"min=1,max=64"`
	ImageWorkers      int           `env:"IMAGE_WORKERS" validate:"min=1,max=64"`
	RequestsPerSecond float64       `env:"REQUESTS_PER_SECOND" validate:"gte=0"`
}

type Telegram struct {
	Token   string        `env:"TELEGRAM_TOKEN" validate:"omitempty,telegram_bot_token"` // Token is an unique telegram bot token.
	Timeout time.Duration `env:"TELEGRAM_TIMEOUT"`                                       // Timeout is a poller timeout duration.
}

// SnapshotDBPath is the sqlite file holding snapshots and subscriptions.
func (c *Config) SnapshotDBPath() string {
	return filepath.Join(c.StoragePath, "snapshots.db")
}

// ImageCachePath is the badger directory of the image cache.
func (c *Config) ImageCachePath() string {
	return filepath.Join(c.StoragePath, "images")
}

// MustLoad loads the configuration from environment variables and panics if it is unusable.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load reads SW_* environment variables, applies defaults and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// optional args
	v.SetDefault("ENV", "production")
	v.SetDefault("BASE_URL", "https://flavortown.hackclub.com/")
	v.SetDefault("USER_AGENT",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36")
	v.SetDefault("STORAGE_PATH", "./shopwatch-storage")
	v.SetDefault("CDN_BASE_URL", "https://cdn.hackclub.com/api/file")
	v.SetDefault("CDN_KEY", "beans")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("DETAIL_WORKERS", 4)
	v.SetDefault("IMAGE_WORKERS", 4)
	v.SetDefault("REQUESTS_PER_SECOND", 5)
	v.SetDefault("SNAPSHOT_RETENTION", 10)
	v.SetDefault("TELEGRAM_TIMEOUT", "15s")

	if v.GetString("COOKIE") == "" {
		return nil, ErrEmptyCookie
	}
	if v.GetString("WEBHOOK_URL") == "" {
		return nil, ErrEmptyWebhook
	}

	cfg := &Config{
		Env:         v.GetString("ENV"),
		Cookie:      v.GetString("COOKIE"),
		WebhookURL:  v.GetString("WEBHOOK_URL"),
		BaseURL:     v.GetString("BASE_URL"),
		UserAgent:   v.GetString("USER_AGENT"),
		StoragePath: v.GetString("STORAGE_PATH"),
		CDN: CDN{
			BaseURL: v.GetString("CDN_BASE_URL"),
			Key:     v.GetString("CDN_KEY"),
		},
		Crawl: Crawl{
			HTTPTimeout:       v.GetDuration("HTTP_TIMEOUT"),
			DetailWorkers:     v.GetInt("DETAIL_WORKERS"),
			ImageWorkers:      v.GetInt("IMAGE_WORKERS"),
			RequestsPerSecond: v.GetFloat64("REQUESTS_PER_SECOND"),
		},
		Retention: v.GetInt("SNAPSHOT_RETENTION"),
		Schedule:  v.GetString("SCHEDULE"),
		Tg: Telegram{
			Token:   v.GetString("TELEGRAM_TOKEN"),
			Timeout: v.GetDuration("TELEGRAM_TIMEOUT"),
		},
	}

	if err := newValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			first := fieldErrs[0]
			return nil, fmt.Errorf("%w: %s_%s failed %q", ErrInvalid, envPrefix, first.Field(), first.Tag())
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return cfg, nil
}

func newValidator() *validator.Validate {
	v := validator.New()

	// Report environment variable names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("env")
	})

	if err := v.RegisterValidation("cron_spec", validateCronSpec); err != nil {
		panic(fmt.Sprintf("failed to register cron_spec validation: %v", err))
	}
	if err := v.RegisterValidation("telegram_bot_token", validateTelegramToken); err != nil {
		panic(fmt.Sprintf("failed to register telegram_bot_token validation: %v", err))
	}

	return v
}

func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

func validateTelegramToken(fl validator.FieldLevel) bool {
	return telegramTokenRegex.MatchString(fl.Field().String())
}
