// Package config loads the portal's runtime settings from defaults, an
// optional opsportal.yaml file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the portal settings.
type Config struct {
	HTTPAddress   string        `mapstructure:"http_address"`
	DatabaseDSN   string        `mapstructure:"database_dsn"`
	UploadDir     string        `mapstructure:"upload_dir"`
	EventsURL     string        `mapstructure:"events_url"`
	RedisURL      string        `mapstructure:"redis_url"`
	RedisChannel  string        `mapstructure:"redis_channel"`
	LogLevel      string        `mapstructure:"log_level"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`
	// Users are created at startup when no account with their id exists.
	Users []SeedUser `mapstructure:"users"`
}

// SeedUser is an account listed under users in the config file.
type SeedUser struct {
	ID       int64    `mapstructure:"id"`
	Username string   `mapstructure:"username"`
	Email    string   `mapstructure:"email"`
	Roles    []string `mapstructure:"roles"`
}

// Options control where Load looks for settings.
type Options struct {
	// File is an explicit config file path. When empty, opsportal.yaml is
	// searched for in the working directory and ./config.
	File string
	// EnvFile is the dotenv file loaded before reading the environment.
	// A missing file is ignored.
	EnvFile string
}

var envBindings = map[string]string{
	"http_address":   "HTTP_ADDRESS",
	"database_dsn":   "DATABASE_DSN",
	"upload_dir":     "UPLOAD_DIR",
	"events_url":     "DRIVE_EVENTS_URL",
	"redis_url":      "REDIS_URL",
	"redis_channel":  "REDIS_CHANNEL",
	"log_level":      "LOG_LEVEL",
	"notify_timeout": "NOTIFY_TIMEOUT",
}

// Load reads the configuration.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Debug().Str("file", envFile).Msg("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("opsportal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Using config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_address", ":8080")
	v.SetDefault("database_dsn", "")
	v.SetDefault("upload_dir", "uploads/drive")
	v.SetDefault("events_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_channel", "drive-events")
	v.SetDefault("log_level", "info")
	v.SetDefault("notify_timeout", "5s")
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("notify_timeout must be positive, got %s", c.NotifyTimeout)
	}

	if c.UploadDir == "" {
		return errors.New("upload_dir must not be empty")
	}

	seen := make(map[int64]bool, len(c.Users))

	for i, u := range c.Users {
		if u.ID <= 0 {
			return fmt.Errorf("users[%d]: id must be positive, got %d", i, u.ID)
		}

		if strings.TrimSpace(u.Username) == "" {
			return fmt.Errorf("users[%d]: username must not be empty", i)
		}

		if seen[u.ID] {
			return fmt.Errorf("users[%d]: duplicate id %d", i, u.ID)
		}

		seen[u.ID] = true
	}

	return nil
}

// Level returns the parsed log level. Validate must have succeeded.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}

	return level
}

// UsesDatabase reports whether stores should be backed by postgres.
func (c *Config) UsesDatabase() bool {
	return c.DatabaseDSN != ""
}
