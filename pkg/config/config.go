package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Instagram session
type Config struct {
	// Instagram endpoint and transport settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram" toml:"instagram"`

	// Client side request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit" toml:"rate_limit"`

	// Retry policy for failed requests
	Retry RetryConfig `yaml:"retry" json:"retry" toml:"retry"`

	// Where authenticated sessions are persisted
	Session SessionConfig `yaml:"session" json:"session" toml:"session"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging" toml:"logging"`
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	BaseURL          string        `yaml:"base_url" json:"base_url" toml:"base_url" validate:"required,url"`
	UserAgent        string        `yaml:"user_agent" json:"user_agent" toml:"user_agent" validate:"required"`
	MobileUserAgent  string        `yaml:"mobile_user_agent" json:"mobile_user_agent" toml:"mobile_user_agent" validate:"required"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout" toml:"timeout" validate:"gte=0"`
	CloudflareBypass bool          `yaml:"cloudflare_bypass" json:"cloudflare_bypass" toml:"cloudflare_bypass"`
	ShortcodeLookup  string        `yaml:"shortcode_lookup" json:"shortcode_lookup" toml:"shortcode_lookup" validate:"oneof=offline network"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	Algorithm         string `yaml:"algorithm" json:"algorithm" toml:"algorithm" validate:"oneof=token_bucket sliding_window"`
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute" toml:"requests_per_minute" validate:"gte=0"`
	BurstSize         int    `yaml:"burst_size" json:"burst_size" toml:"burst_size" validate:"gte=0"`
}

// RetryConfig holds retry configuration. MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay" toml:"base_delay" validate:"gte=0"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay" toml:"max_delay" validate:"gte=0"`
}

// SessionConfig selects the credential store used to persist sessions
type SessionConfig struct {
	Store    string `yaml:"store" json:"store" toml:"store" validate:"oneof=auto keyring file env none"`
	File     string `yaml:"file" json:"file" toml:"file"`
	Username string `yaml:"username" json:"username" toml:"username"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level" toml:"level"`
	File       string `yaml:"file" json:"file" toml:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size" toml:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" toml:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age" toml:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress" toml:"compress"`
}

const (
	DefaultBaseURL         = "https://www.instagram.com/"
	DefaultUserAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_13_3) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/66.0.3359.139 Safari/537.36"
	DefaultMobileUserAgent = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/66.0.3359.139 Mobile Safari/537.36"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL:         DefaultBaseURL,
			UserAgent:       DefaultUserAgent,
			MobileUserAgent: DefaultMobileUserAgent,
			Timeout:         0, // no timeout
			ShortcodeLookup: "offline",
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			Algorithm:         "token_bucket",
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Session: SessionConfig{
			Store: "auto",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from INSTAAPI_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("INSTAAPI_BASE_URL"); v != "" {
		c.Instagram.BaseURL = v
	}
	if v := os.Getenv("INSTAAPI_USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}
	if v := os.Getenv("INSTAAPI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("INSTAAPI_TIMEOUT: %w", err))
		} else {
			c.Instagram.Timeout = d
		}
	}
	if v := os.Getenv("INSTAAPI_CLOUDFLARE_BYPASS"); v != "" {
		c.Instagram.CloudflareBypass = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("INSTAAPI_SHORTCODE_LOOKUP"); v != "" {
		c.Instagram.ShortcodeLookup = v
	}

	if v := os.Getenv("INSTAAPI_RATE_LIMIT_ENABLED"); v != "" {
		c.RateLimit.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("INSTAAPI_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("INSTAAPI_REQUESTS_PER_MINUTE: %w", err))
		} else if n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}

	if v := os.Getenv("INSTAAPI_RETRY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("INSTAAPI_RETRY_MAX_ATTEMPTS: %w", err))
		} else if n > 0 {
			c.Retry.MaxAttempts = n
		}
	}

	if v := os.Getenv("INSTAAPI_SESSION_STORE"); v != "" {
		c.Session.Store = v
	}
	if v := os.Getenv("INSTAAPI_SESSION_FILE"); v != "" {
		c.Session.File = v
	}
	if v := os.Getenv("INSTAAPI_USERNAME"); v != "" {
		c.Session.Username = v
	}

	if v := os.Getenv("INSTAAPI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("INSTAAPI_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML or TOML file, chosen by extension
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
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

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".instaapi.yaml",
		".instaapi.yml",
		".instaapi.toml",
		filepath.Join(home, ".config", "instaapi", "config.yaml"),
		filepath.Join(home, ".config", "instaapi", "config.toml"),
		filepath.Join(home, ".instaapi.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Errorf("%s: failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, errors.New("requests per minute must be positive when rate limiting is enabled"))
		}
		if c.RateLimit.Algorithm == "token_bucket" && c.RateLimit.BurstSize <= 0 {
			errs = append(errs, errors.New("burst size must be positive for the token bucket limiter"))
		}
	}

	if c.Retry.MaxDelay > 0 && c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("retry max delay cannot be shorter than the base delay"))
	}

	if c.Session.Store == "file" && c.Session.File == "" {
		errs = append(errs, errors.New("session file is required for the file store"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".instaapi.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
