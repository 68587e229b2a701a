package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	API       APIConfig     `json:"api"`
	Dashboard PollConfig    `json:"dashboard"`
	Library   PollConfig    `json:"library"`
	Server    ServerConfig  `json:"server"`
	Cache     CacheConfig   `json:"cache"`
	Logging   LoggingConfig `json:"logging"`
}

// APIConfig holds the anime downloader backend configuration
type APIConfig struct {
	URL            string        `json:"url"`
	Username       string        `json:"username"`
	Password       string        `json:"password"`
	RequestTimeout time.Duration `json:"request_timeout"` // 0 disables the timeout
}

// PollConfig holds the refresh period of a view model
type PollConfig struct {
	Interval time.Duration `json:"interval"`
}

// ServerConfig holds the page host configuration
type ServerConfig struct {
	Addr    string `json:"addr"`
	Metrics bool   `json:"metrics"`
}

// CacheConfig holds caching configuration for last-good views
type CacheConfig struct {
	ViewTTL         time.Duration `json:"view_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSize    int    `json:"max_size"`    // megabytes
	MaxBackups int    `json:"max_backups"` // number of backup files
	MaxAge     int    `json:"max_age"`     // days
	Compress   bool   `json:"compress"`    // compress rotated files
	ToStdout   bool   `json:"to_stdout"`   // also log to stdout
}

// Default refresh periods of the two views
const (
	DefaultDashboardInterval = 3000 * time.Millisecond
	DefaultLibraryInterval   = 30000 * time.Millisecond
)

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"api.url":                "ANIME_API_URL",
	"api.username":           "ANIME_USER",
	"api.password":           "ANIME_PASS",
	"api.request_timeout":    "ANIME_API_REQUEST_TIMEOUT",
	"dashboard.interval":     "DASHBOARD_INTERVAL",
	"library.interval":       "LIBRARY_INTERVAL",
	"server.addr":            "SERVER_ADDR",
	"server.metrics":         "SERVER_METRICS",
	"cache.view_ttl":         "CACHE_VIEW_TTL",
	"cache.cleanup_interval": "CACHE_CLEANUP_INTERVAL",
	"logging.level":          "LOG_LEVEL",
	"logging.file":           "LOG_FILE",
	"logging.max_size":       "LOG_MAX_SIZE",
	"logging.max_backups":    "LOG_MAX_BACKUPS",
	"logging.max_age":        "LOG_MAX_AGE",
	"logging.compress":       "LOG_COMPRESS",
	"logging.to_stdout":      "LOG_TO_STDOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "http://localhost:5000")
	v.SetDefault("api.username", "")
	v.SetDefault("api.password", "")
	v.SetDefault("api.request_timeout", time.Duration(0))

	v.SetDefault("dashboard.interval", DefaultDashboardInterval)
	v.SetDefault("library.interval", DefaultLibraryInterval)

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.metrics", true)

	v.SetDefault("cache.view_ttl", 10*time.Minute)
	v.SetDefault("cache.cleanup_interval", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "animedash.log")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.to_stdout", true)
}

// LoadConfig loads configuration from defaults, an optional config file and
// environment variables, in increasing order of precedence.
func LoadConfig(configFile string) (*Config, error) {
	// A missing .env is fine, system environment variables still apply
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}

	config.API.URL = strings.TrimRight(strings.TrimSpace(v.GetString("api.url")), "/")
	config.API.Username = v.GetString("api.username")
	config.API.Password = v.GetString("api.password")
	config.API.RequestTimeout = v.GetDuration("api.request_timeout")

	config.Dashboard.Interval = v.GetDuration("dashboard.interval")
	config.Library.Interval = v.GetDuration("library.interval")

	config.Server.Addr = v.GetString("server.addr")
	config.Server.Metrics = v.GetBool("server.metrics")

	config.Cache.ViewTTL = v.GetDuration("cache.view_ttl")
	config.Cache.CleanupInterval = v.GetDuration("cache.cleanup_interval")

	config.Logging.Level = strings.ToLower(v.GetString("logging.level"))
	config.Logging.File = v.GetString("logging.file")
	config.Logging.MaxSize = v.GetInt("logging.max_size")
	config.Logging.MaxBackups = v.GetInt("logging.max_backups")
	config.Logging.MaxAge = v.GetInt("logging.max_age")
	config.Logging.Compress = v.GetBool("logging.compress")
	config.Logging.ToStdout = v.GetBool("logging.to_stdout")

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("ANIME_API_URL is required")
	}

	parsed, err := url.Parse(c.API.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid ANIME_API_URL: %q", c.API.URL)
	}

	if c.API.Username != "" && c.API.Password == "" {
		return fmt.Errorf("ANIME_PASS is required when ANIME_USER is set")
	}

	if c.API.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative, got: %s", c.API.RequestTimeout)
	}

	if c.Dashboard.Interval <= 0 {
		return fmt.Errorf("dashboard interval must be greater than 0, got: %s", c.Dashboard.Interval)
	}

	if c.Library.Interval <= 0 {
		return fmt.Errorf("library interval must be greater than 0, got: %s", c.Library.Interval)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.Logging.Level)
	}

	return nil
}

// HasCredentials reports whether the backend requires a session login
func (c *Config) HasCredentials() bool {
	return c.API.Username != ""
}
