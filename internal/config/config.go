// Package config manages application configuration from defaults, an
// optional config.yaml file, and BOT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration. Every value can be set via
// config.yaml or an environment variable prefixed with BOT_
// (e.g. BOT_TELEGRAM_TOKEN).
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// TelegramConfig holds bot credentials and the single group the bot serves.
type TelegramConfig struct {
	Token  string `mapstructure:"token"   validate:"required"`
	ChatID int64  `mapstructure:"chat_id" validate:"required"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"       validate:"required"`
	MaxConns int    `mapstructure:"max_conns" validate:"min=1,max=64"`
}

// StatsConfig tunes the statistics engine.
type StatsConfig struct {
	// Timezone is the IANA name used for time literals and calendar
	// bucketing in results.
	Timezone string `mapstructure:"timezone" validate:"required"`

	QueryTimeout time.Duration `mapstructure:"query_timeout" validate:"required,min=1s,max=5m"`

	// MinMessages is the activity floor for correlation and delta results.
	MinMessages int `mapstructure:"min_messages" validate:"min=1"`

	TopSenders  int `mapstructure:"top_senders"  validate:"min=1,max=100"`
	LexemeLimit int `mapstructure:"lexeme_limit" validate:"min=1,max=100"`
}

// MetricsConfig controls the optional Prometheus endpoint. An empty address
// disables the listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from defaults, a config file, and BOT_*
// environment variables, then validates the result. path selects an explicit
// config file; when empty, config.yaml in the working directory is used if
// present.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing default config file is fine, env and defaults cover it.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration, including that the timezone resolves.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Stats.Timezone); err != nil {
		return fmt.Errorf("invalid stats timezone %q: %w", c.Stats.Timezone, err)
	}
	return nil
}

// Location resolves the configured display timezone. Validate must have
// succeeded first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Stats.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.max_conns", 4)

	v.SetDefault("stats.timezone", "UTC")
	v.SetDefault("stats.query_timeout", 15*time.Second)
	v.SetDefault("stats.min_messages", 5)
	v.SetDefault("stats.top_senders", 20)
	v.SetDefault("stats.lexeme_limit", 20)

	v.SetDefault("metrics.addr", "")
}
