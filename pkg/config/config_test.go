package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "https://www.instagram.com/", config.Instagram.BaseURL)
	assert.Equal(t, time.Duration(0), config.Instagram.Timeout)
	assert.Equal(t, "offline", config.Instagram.ShortcodeLookup)
	assert.False(t, config.RateLimit.Enabled)
	assert.Equal(t, 1, config.Retry.MaxAttempts)
	assert.Equal(t, "auto", config.Session.Store)
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INSTAAPI_BASE_URL", "http://127.0.0.1:8080/")
	t.Setenv("INSTAAPI_TIMEOUT", "15s")
	t.Setenv("INSTAAPI_RATE_LIMIT_ENABLED", "true")
	t.Setenv("INSTAAPI_REQUESTS_PER_MINUTE", "30")
	t.Setenv("INSTAAPI_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("INSTAAPI_SESSION_STORE", "env")
	t.Setenv("INSTAAPI_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "http://127.0.0.1:8080/", config.Instagram.BaseURL)
	assert.Equal(t, 15*time.Second, config.Instagram.Timeout)
	assert.True(t, config.RateLimit.Enabled)
	assert.Equal(t, 30, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.Equal(t, "env", config.Session.Store)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvBadValues(t *testing.T) {
	t.Setenv("INSTAAPI_TIMEOUT", "soon")
	t.Setenv("INSTAAPI_REQUESTS_PER_MINUTE", "many")

	err := DefaultConfig().LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSTAAPI_TIMEOUT")
	assert.Contains(t, err.Error(), "INSTAAPI_REQUESTS_PER_MINUTE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty base url",
			mutate:  func(c *Config) { c.Instagram.BaseURL = "" },
			wantErr: "BaseURL",
		},
		{
			name:    "unknown shortcode lookup",
			mutate:  func(c *Config) { c.Instagram.ShortcodeLookup = "guess" },
			wantErr: "ShortcodeLookup",
		},
		{
			name:    "zero retry attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "MaxAttempts",
		},
		{
			name: "rate limit enabled without budget",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.RequestsPerMinute = 0
			},
			wantErr: "requests per minute",
		},
		{
			name:    "file store without path",
			mutate:  func(c *Config) { c.Session.Store = "file" },
			wantErr: "session file",
		},
		{
			name: "max delay below base delay",
			mutate: func(c *Config) {
				c.Retry.BaseDelay = time.Minute
				c.Retry.MaxDelay = time.Second
			},
			wantErr: "max delay",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.Instagram.CloudflareBypass = true
	config.Session.Username = "someone"
	config.RateLimit.BurstSize = 4

	require.NoError(t, config.Save(configPath))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))

	assert.True(t, loaded.Instagram.CloudflareBypass)
	assert.Equal(t, "someone", loaded.Session.Username)
	assert.Equal(t, 4, loaded.RateLimit.BurstSize)
}

func TestLoadFromTOMLFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[instagram]
base_url = "http://localhost:9000/"
shortcode_lookup = "network"

[retry]
max_attempts = 4

[session]
store = "none"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, "http://localhost:9000/", config.Instagram.BaseURL)
	assert.Equal(t, "network", config.Instagram.ShortcodeLookup)
	assert.Equal(t, 4, config.Retry.MaxAttempts)
	assert.Equal(t, "none", config.Session.Store)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultUserAgent, config.Instagram.UserAgent)
}

func TestLoadFromFileErrors(t *testing.T) {
	config := DefaultConfig()
	assert.Error(t, config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("instagram: [unclosed"), 0600))
	assert.Error(t, config.LoadFromFile(bad))
}

func TestLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: warn\n"), 0600))
	t.Setenv("INSTAAPI_USERNAME", "from-env")

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "from-env", config.Session.Username)

	t.Setenv("INSTAAPI_SESSION_STORE", "carrier-pigeon")
	_, err = Load(configPath)
	assert.Error(t, err)
}
