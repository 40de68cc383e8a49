package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the application reads.
const EnvPrefix = "CURIOUSQA_"

// Config holds all configuration options for the exporter
type Config struct {
	CuriousCat CuriousCatConfig `yaml:"curiouscat" json:"curiouscat"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Retry      RetryConfig      `yaml:"retry" json:"retry"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// CuriousCatConfig describes the upstream profile API
type CuriousCatConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	PageDelay      time.Duration `yaml:"page_delay" json:"page_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// ServerConfig holds the web form listener settings
type ServerConfig struct {
	Addr         string        `yaml:"addr" json:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	// RequestTimeout bounds one export; 0 lets it run until the walk ends.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// CacheConfig controls where per-user snapshots live
type CacheConfig struct {
	Backend    string `yaml:"backend" json:"backend"`
	Directory  string `yaml:"directory" json:"directory"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
	// WriteBack persists the merged snapshot after a successful walk.
	WriteBack     bool          `yaml:"write_back" json:"write_back"`
	ExportTTL time.Duration `yaml:"export_ttl" json:"export_ttl"`
	// ExportCacheMB is the export cache's total memory. A single workbook
	// may take at most a quarter of it.
	ExportCacheMB int `yaml:"export_cache_mb" json:"export_cache_mb"`
}

// RateLimitConfig caps upstream page requests across all exports
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds retry configuration for a single page fetch
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay      time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" json:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		CuriousCat: CuriousCatConfig{
			BaseURL:        "https://curiouscat.live",
			UserAgent:      "curiousqa/1.0",
			PageDelay:      time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":8000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		Cache: CacheConfig{
			Backend:       "file",
			Directory:     ".",
			SQLitePath:    "curiousqa.db",
			WriteBack:     false,
			ExportTTL:     0,
			ExportCacheMB: 32,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
		},
		Retry: RetryConfig{
			MaxAttempts:       1,
			InitialDelay:      time.Second,
			MaxDelay:          30 * time.Second,
			BackoffMultiplier: 2.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = strings.ToLower(v) == "true" || v == "1"
		}
	}

	setString("BASE_URL", &c.CuriousCat.BaseURL)
	setString("USER_AGENT", &c.CuriousCat.UserAgent)
	setDuration("PAGE_DELAY", &c.CuriousCat.PageDelay)
	setDuration("UPSTREAM_TIMEOUT", &c.CuriousCat.RequestTimeout)

	setString("ADDR", &c.Server.Addr)
	setDuration("REQUEST_TIMEOUT", &c.Server.RequestTimeout)

	setString("CACHE_BACKEND", &c.Cache.Backend)
	setString("CACHE_DIR", &c.Cache.Directory)
	setString("SQLITE_PATH", &c.Cache.SQLitePath)
	setBool("WRITE_BACK", &c.Cache.WriteBack)
	setDuration("EXPORT_TTL", &c.Cache.ExportTTL)

	setInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	setInt("MAX_ATTEMPTS", &c.Retry.MaxAttempts)
	setBool("METRICS_ENABLED", &c.Metrics.Enabled)

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)
	setString("LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"curiousqa.yaml",
		".curiousqa.yaml",
		".curiousqa.yml",
		filepath.Join(home, ".config", "curiousqa", "config.yaml"),
		filepath.Join(home, ".curiousqa.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.CuriousCat.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.New("curiouscat base URL must be an absolute URL"))
	}
	if c.CuriousCat.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}
	if c.CuriousCat.RequestTimeout <= 0 {
		errs = append(errs, errors.New("upstream request timeout must be positive"))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("request timeout cannot be negative"))
	}

	switch strings.ToLower(c.Cache.Backend) {
	case "file":
		if c.Cache.Directory == "" {
			errs = append(errs, errors.New("cache directory is required for the file backend"))
		}
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.ExportTTL < 0 {
		errs = append(errs, errors.New("export TTL cannot be negative"))
	}
	if c.Cache.ExportTTL > 0 && c.Cache.ExportCacheMB <= 0 {
		errs = append(errs, errors.New("export cache size must be positive when export TTL is set"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if c.Retry.MaxAttempts > 1 && c.Retry.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("backoff multiplier must be at least 1"))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, errors.New("metrics path must start with /"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, errors.New("log format must be console or json"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Keys match the cobra flag names.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["addr"].(string); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.CuriousCat.BaseURL = v
	}
	if v, ok := flags["page-delay"].(time.Duration); ok {
		c.CuriousCat.PageDelay = v
	}
	if v, ok := flags["cache-dir"].(string); ok && v != "" {
		c.Cache.Directory = v
	}
	if v, ok := flags["cache-backend"].(string); ok && v != "" {
		c.Cache.Backend = v
	}
	if v, ok := flags["write-back"].(bool); ok {
		c.Cache.WriteBack = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".curiousqa.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
