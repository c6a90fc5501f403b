// Package config loads client settings from the environment, .env files and
// command-line flags.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tempmail-sdk/client-go/internal/apierrors"
	"github.com/tempmail-sdk/client-go/internal/logging"
)

// EnvPrefix prefixes every environment variable, e.g. TEMPMAIL_PROXY.
const EnvPrefix = "tempmail"

// Config holds client settings.
type Config struct {
	Proxy     string
	Timeout   time.Duration
	Insecure  bool
	RateLimit float64
	Retry     RetryConfig
	Log       logging.Config
}

// RetryConfig holds the default retry policy.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Timeout: 15 * time.Second,
		Retry: RetryConfig{
			MaxRetries:   2,
			InitialDelay: time.Second,
			MaxDelay:     5 * time.Second,
		},
		Log: logging.Config{Level: logging.LevelSilent},
	}
}

// NewViper returns a viper instance bound to the TEMPMAIL_ environment with
// all defaults registered. Callers may bind flags on it before FromViper.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("proxy", d.Proxy)
	v.SetDefault("timeout", d.Timeout.String())
	v.SetDefault("insecure", d.Insecure)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.initial_delay", d.Retry.InitialDelay.String())
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay.String())
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	return v
}

// Load reads .env files (missing files are skipped) and then the environment.
// With no arguments it looks for ".env" in the working directory.
func Load(envFiles ...string) (*Config, error) {
	if err := LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	return FromViper(NewViper())
}

// LoadDotEnv exports the variables of each existing file into the process
// environment. Variables that are already set win.
func LoadDotEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// FromViper decodes and validates settings from v.
func FromViper(v *viper.Viper) (*Config, error) {
	timeout, err := parseDuration(v.GetString("timeout"))
	if err != nil {
		return nil, apierrors.Validation("timeout", "%v", err)
	}
	initial, err := parseDuration(v.GetString("retry.initial_delay"))
	if err != nil {
		return nil, apierrors.Validation("retry.initial_delay", "%v", err)
	}
	maxDelay, err := parseDuration(v.GetString("retry.max_delay"))
	if err != nil {
		return nil, apierrors.Validation("retry.max_delay", "%v", err)
	}

	cfg := &Config{
		Proxy:     v.GetString("proxy"),
		Timeout:   timeout,
		Insecure:  v.GetBool("insecure"),
		RateLimit: v.GetFloat64("rate_limit"),
		Retry: RetryConfig{
			MaxRetries:   v.GetInt("retry.max_retries"),
			InitialDelay: initial,
			MaxDelay:     maxDelay,
		},
		Log: logging.Config{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			LogFile:     v.GetString("log.file"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	switch {
	case c.Timeout <= 0:
		return apierrors.Validation("timeout", "must be positive")
	case c.Retry.MaxRetries < 0:
		return apierrors.Validation("retry.max_retries", "must not be negative")
	case c.Retry.InitialDelay <= 0:
		return apierrors.Validation("retry.initial_delay", "must be positive")
	case c.Retry.MaxDelay < c.Retry.InitialDelay:
		return apierrors.Validation("retry.max_delay", "must be at least retry.initial_delay")
	case c.RateLimit < 0:
		return apierrors.Validation("rate_limit", "must not be negative")
	}
	return nil
}

// parseDuration accepts a Go duration ("15s") or a bare number of seconds ("15").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
