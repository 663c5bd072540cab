package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"predict-backtest/internal/backtest"
	"predict-backtest/internal/data"
)

// Config is the on-disk configuration shape (YAML).
// Every field has a default; an empty file is a valid config.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Runner RunnerConfig `yaml:"runner"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	// Env is "development" or "production"; production switches gin to
	// release mode.
	Env         string   `yaml:"env"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxBytes   int64         `yaml:"max_bytes"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	// CacheTTL enables the in-memory CSV cache when positive.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type RunnerConfig struct {
	Parallelism    int    `yaml:"parallelism"`
	MissingMetrics string `yaml:"missing_metrics"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Env:         "development",
			CORSOrigins: []string{"*"},
		},
		Fetch: FetchConfig{
			Timeout:    data.DefaultTimeout,
			MaxBytes:   data.DefaultMaxBytes,
			RetryDelay: 500 * time.Millisecond,
		},
		Runner: RunnerConfig{
			Parallelism:    1,
			MissingMetrics: string(backtest.MissingNull),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (if any), applies environment overrides and validates.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked overlays the file onto the defaults without validating.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides fields from API_PORT, API_ENV, LOG_LEVEL,
// CORS_ORIGINS (comma separated) and RUNNER_PARALLELISM.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("API_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("API_ENV"); v != "" {
		c.Server.Env = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSOrigins = origins
	}
	if v := getenv("RUNNER_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RUNNER_PARALLELISM: %w", err)
		}
		c.Runner.Parallelism = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port must be numeric: %q", c.Server.Port)
	}
	if c.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be > 0")
	}
	if c.Fetch.MaxBytes <= 0 {
		return errors.New("fetch.max_bytes must be > 0")
	}
	if c.Fetch.Retries < 0 {
		return errors.New("fetch.retries must be >= 0")
	}
	if c.Fetch.CacheTTL < 0 {
		return errors.New("fetch.cache_ttl must be >= 0")
	}
	if c.Runner.Parallelism < 1 {
		return errors.New("runner.parallelism must be >= 1")
	}
	if _, err := backtest.ParseMissingPolicy(c.Runner.MissingMetrics); err != nil {
		return fmt.Errorf("runner.missing_metrics: %w", err)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error: %q", c.Log.Level)
	}
	return nil
}

func (c *Config) Production() bool { return c.Server.Env == "production" }

// FetchOptions converts the fetch section for data.NewCSVClient.
func (c *Config) FetchOptions() data.Options {
	return data.Options{
		Timeout:    c.Fetch.Timeout,
		MaxBytes:   c.Fetch.MaxBytes,
		Retries:    c.Fetch.Retries,
		RetryDelay: c.Fetch.RetryDelay,
		CacheTTL:   c.Fetch.CacheTTL,
	}
}

// MissingPolicy returns the validated default policy for jobs that do not
// set one.
func (c *Config) MissingPolicy() backtest.MissingPolicy {
	p, err := backtest.ParseMissingPolicy(c.Runner.MissingMetrics)
	if err != nil {
		return backtest.MissingNull
	}
	return p
}
