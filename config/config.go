// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Relations RelationsConfig `yaml:"relations"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	UI        UIConfig        `yaml:"ui"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host" default:"0.0.0.0"`
	Port         int           `yaml:"port" default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"60s"`

	// OpenAPI serves the JSON API document and Swagger UI.
	OpenAPI bool `yaml:"openapi"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig configures the REST backend that owns all records.
type BackendConfig struct {
	URL         string            `yaml:"url"`
	Timeout     time.Duration     `yaml:"timeout" default:"10s"`
	ReadRetries int               `yaml:"read_retries" default:"2"`
	RetryWait   time.Duration     `yaml:"retry_wait" default:"200ms"`
	APIKey      string            `yaml:"api_key,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
}

// CatalogConfig locates the module catalog document.
type CatalogConfig struct {
	Path string `yaml:"path" default:"catalog.json"`
}

// RelationsConfig configures the related-options cache.
type RelationsConfig struct {
	TTL time.Duration `yaml:"ttl" default:"30s"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format" default:"json"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

// UIConfig configures the admin pages.
type UIConfig struct {
	AppName        string        `yaml:"app_name" default:"Business Admin"`
	PageSize       int           `yaml:"page_size" default:"10"`
	CurrencySymbol string        `yaml:"currency_symbol" default:"$"`
	RedirectDelay  time.Duration `yaml:"redirect_delay" default:"3s"`

	// StaleAfter is how long a module list is reused before the next page
	// view re-fetches it. Negative disables expiry.
	StaleAfter time.Duration `yaml:"stale_after" default:"30s"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	BIZADMIN_BACKEND_URL        - REST backend base URL (required)
//	BIZADMIN_BACKEND_API_KEY    - Bearer token sent to the backend
//	BIZADMIN_CATALOG_PATH       - Catalog document (default: catalog.json)
//	BIZADMIN_SERVER_HOST        - Server host (default: 0.0.0.0)
//	BIZADMIN_SERVER_PORT        - Server port (default: 8080)
//	BIZADMIN_LOG_LEVEL          - Log level: debug, info, warn, error (default: info)
//	BIZADMIN_LOG_FORMAT         - Log format: json or console (default: json)
//	BIZADMIN_METRICS_ENABLED    - Enable /metrics endpoint (default: false)
//	BIZADMIN_OPENAPI_ENABLED    - Serve /swagger/ and /.well-known/openapi.json (default: false)
//	BIZADMIN_CURRENCY_SYMBOL    - Currency prefix (default: $)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	return finish(&cfg)
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set BIZADMIN_BACKEND_URL")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("BIZADMIN_BACKEND_URL") != ""
}

func finish(cfg *Config) (*Config, error) {
	// Environment variables always override file-based configuration.
	applyEnvOverrides(cfg)

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies BIZADMIN_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("BIZADMIN_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("BIZADMIN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BIZADMIN_OPENAPI_ENABLED"); v != "" {
		cfg.Server.OpenAPI = parseBool(v)
	}

	// Backend configuration
	if v := os.Getenv("BIZADMIN_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("BIZADMIN_BACKEND_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("BIZADMIN_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("BIZADMIN_BACKEND_READ_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.ReadRetries = n
		}
	}

	// Catalog
	if v := os.Getenv("BIZADMIN_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	// Logging configuration
	if v := os.Getenv("BIZADMIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BIZADMIN_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("BIZADMIN_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("BIZADMIN_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// UI
	if v := os.Getenv("BIZADMIN_APP_NAME"); v != "" {
		cfg.UI.AppName = v
	}
	if v := os.Getenv("BIZADMIN_CURRENCY_SYMBOL"); v != "" {
		cfg.UI.CurrencySymbol = v
	}
	if v := os.Getenv("BIZADMIN_STALE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.UI.StaleAfter = d
		}
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func validate(cfg *Config) error {
	if cfg.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(cfg.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.url must be an absolute http(s) URL, got %q", cfg.Backend.URL)
	}
	if cfg.Backend.ReadRetries < 0 {
		return fmt.Errorf("backend.read_retries must not be negative")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}

	if cfg.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	if cfg.UI.PageSize <= 0 {
		return fmt.Errorf("ui.page_size must be positive")
	}

	return nil
}
