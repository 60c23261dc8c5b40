package config_test

import (
	"testing"
	"time"

	testify "github.com/stretchr/testify/assert"

	"github.com/stepwise/formwizard/internal/assert"
	"github.com/stepwise/formwizard/internal/assert/helpers"
	"github.com/stepwise/formwizard/internal/config"
)

func TestConfigValidation(t *testing.T) {
	as := assert.New(t)

	t.Run("valid_default_config", func(*testing.T) {
		as.ConfigValid(config.NewDefaultConfig())
	})

	t.Run("valid_test_config", func(*testing.T) {
		as.ConfigValid(helpers.NewTestConfig())
	})

	tests := []struct {
		configMod     func(*config.Config)
		name          string
		errorContains string
	}{
		{
			name: "invalid_api_port_zero",
			configMod: func(c *config.Config) {
				c.APIPort = 0
			},
			errorContains: "invalid API port",
		},
		{
			name: "invalid_api_port_too_high",
			configMod: func(c *config.Config) {
				c.APIPort = 70000
			},
			errorContains: "invalid API port",
		},
		{
			name: "unknown_backend",
			configMod: func(c *config.Config) {
				c.Backend = "postgres"
			},
			errorContains: "unknown storage backend",
		},
		{
			name: "cookie_backend_without_secret",
			configMod: func(c *config.Config) {
				c.Backend = config.BackendCookie
			},
			errorContains: "requires a secret",
		},
		{
			name: "zero_session_ttl",
			configMod: func(c *config.Config) {
				c.Redis.TTL = 0
			},
			errorContains: "session TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(*testing.T) {
			cfg := config.NewDefaultConfig()
			tt.configMod(cfg)
			as.ConfigInvalid(cfg, tt.errorContains)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	as := testify.New(t)

	t.Setenv("API_HOST", "127.0.0.1")
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_BACKEND", config.BackendRedis)
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("FILE_BUCKET_URL", "file:///tmp/uploads")

	cfg := config.NewDefaultConfig()
	as.NoError(cfg.LoadFromEnv())

	as.Equal("127.0.0.1", cfg.APIHost)
	as.Equal(9090, cfg.APIPort)
	as.Equal("debug", cfg.LogLevel)
	as.Equal(config.BackendRedis, cfg.Backend)
	as.Equal("redis:6380", cfg.Redis.Addr)
	as.Equal(3, cfg.Redis.DB)
	as.Equal(2*time.Hour, cfg.Redis.TTL)
	as.Equal("file:///tmp/uploads", cfg.BucketURL)
	as.NoError(cfg.Validate())
}

func TestLoadFromEnvErrors(t *testing.T) {
	as := testify.New(t)

	t.Run("bad_port", func(t *testing.T) {
		t.Setenv("API_PORT", "not-a-port")
		err := config.NewDefaultConfig().LoadFromEnv()
		as.ErrorContains(err, "API_PORT")
	})

	t.Run("port_out_of_range", func(t *testing.T) {
		t.Setenv("API_PORT", "70000")
		err := config.NewDefaultConfig().LoadFromEnv()
		as.ErrorContains(err, "API_PORT")
	})

	t.Run("bad_redis_db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "three")
		err := config.NewDefaultConfig().LoadFromEnv()
		as.ErrorContains(err, "REDIS_DB")
	})

	t.Run("bad_ttl", func(t *testing.T) {
		t.Setenv("SESSION_TTL", "never")
		err := config.NewDefaultConfig().LoadFromEnv()
		as.ErrorContains(err, "SESSION_TTL")
	})
}
