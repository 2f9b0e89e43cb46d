// Package config loads the service configuration from environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/relvacode/iso8601"
	"github.com/spf13/viper"

	"github.com/keboola/go-ajax/pkg/cookie"
	"github.com/keboola/go-ajax/pkg/log"
)

// EnvPrefix of all environment variables, for example AJAX_LOG_LEVEL.
const EnvPrefix = "AJAX"

const DefaultEnvFile = ".env"

// Config holds the service configuration.
type Config struct {
	LogLevel         string    `mapstructure:"log_level"`
	UserAgent        string    `mapstructure:"user_agent"`
	BaseURL          string    `mapstructure:"base_url"`
	HTTP2            bool      `mapstructure:"http2"`
	CookieStore      string    `mapstructure:"cookie_store"`
	CookiePath       string    `mapstructure:"cookie_path"`
	CookieMaxLength  int       `mapstructure:"cookie_max_length"`
	CookieExpiresRaw string    `mapstructure:"cookie_expires"`
	CookieURLPath    string    `mapstructure:"cookie_url_path"`
	CookieExpires    time.Time `mapstructure:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:         "info",
		UserAgent:        "go-ajax",
		CookieStore:      cookie.StoreMemory,
		CookieMaxLength:  cookie.DefaultMaxLength,
		CookieExpiresRaw: cookie.DefaultExpires.Format(time.RFC3339),
		CookieURLPath:    cookie.DefaultPath,
		CookieExpires:    cookie.DefaultExpires,
	}
}

// Load reads the configuration.
// Values from the env files are loaded to the process environment first, missing files are skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(`cannot load env file "%s": %w`, file, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	def := Default()
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("user_agent", def.UserAgent)
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("http2", def.HTTP2)
	v.SetDefault("cookie_store", def.CookieStore)
	v.SetDefault("cookie_path", def.CookiePath)
	v.SetDefault("cookie_max_length", def.CookieMaxLength)
	v.SetDefault("cookie_expires", def.CookieExpiresRaw)
	v.SetDefault("cookie_url_path", def.CookieURLPath)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills derived values.
func (c *Config) Normalize() error {
	if err := c.Validate(); err != nil {
		return err
	}
	expires, _ := iso8601.ParseString(c.CookieExpiresRaw)
	c.CookieExpires = expires.UTC()
	return nil
}

// Validate returns all configuration problems at once.
func (c *Config) Validate() error {
	var errs error

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid log_level: %w", err))
	}

	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid base_url: %w", err))
		} else if u.Scheme == "" || u.Host == "" {
			errs = multierror.Append(errs, fmt.Errorf(`invalid base_url "%s": scheme and host are required`, c.BaseURL))
		}
	}

	switch c.CookieStore {
	case cookie.StoreMemory:
	case cookie.StoreBBolt, cookie.StoreSQLite:
		if c.CookiePath == "" {
			errs = multierror.Append(errs, fmt.Errorf(`cookie_path is required for cookie_store "%s"`, c.CookieStore))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf(`invalid cookie_store "%s": expected one of memory, bbolt, sqlite`, c.CookieStore))
	}

	if c.CookieMaxLength <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("invalid cookie_max_length (must be positive)"))
	}

	if _, err := iso8601.ParseString(c.CookieExpiresRaw); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid cookie_expires: %w", err))
	}

	return errs
}
