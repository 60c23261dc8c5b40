package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/stepwise/formwizard/pkg/storage"
	"github.com/stepwise/formwizard/pkg/util"
)

// Config holds configuration settings for the wizard server
type Config struct {
	// API Server
	APIHost  string
	APIPort  int
	LogLevel string

	// State storage
	Backend      string
	Redis        storage.RedisConfig
	CookieSecret string

	// Uploaded files
	BucketURL  string
	FilePrefix string

	// Lifecycle
	ShutdownTimeout time.Duration
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendCookie = "cookie"

	DefaultAPIHost         = "0.0.0.0"
	DefaultAPIPort         = 8080
	DefaultBackend         = BackendMemory
	DefaultBucketURL       = "mem://"
	DefaultFilePrefix      = "uploads"
	DefaultShutdownTimeout = 10 * time.Second

	MaxTCPPort    = 65535
	MaxSessionTTL = 365 * 24 * time.Hour
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrUnknownBackend       = errors.New("unknown storage backend")
	ErrCookieSecretRequired = errors.New("cookie backend requires a secret")
	ErrInvalidSessionTTL    = errors.New("session TTL out of range")
)

var validBackends = util.SetOf(
	BackendMemory,
	BackendRedis,
	BackendCookie,
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// server, state storage, and uploads
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:  DefaultAPIHost,
		APIPort:  DefaultAPIPort,
		LogLevel: "info",
		Backend:  DefaultBackend,
		Redis: storage.RedisConfig{
			Addr:   storage.DefaultRedisAddr,
			Prefix: storage.DefaultRedisPrefix,
			TTL:    storage.DefaultSessionTTL,
		},
		BucketURL:       DefaultBucketURL,
		FilePrefix:      DefaultFilePrefix,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any value cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		c.Backend = backend
	}
	if secret := os.Getenv("COOKIE_SECRET"); secret != "" {
		c.CookieSecret = secret
	}
	if bucket := os.Getenv("FILE_BUCKET_URL"); bucket != "" {
		c.BucketURL = bucket
	}
	if prefix := os.Getenv("FILE_PREFIX"); prefix != "" {
		c.FilePrefix = prefix
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.Redis.Prefix = prefix
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB: %q", dbStr)
		}
		c.Redis.DB = db
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"SESSION_TTL", &c.Redis.TTL, 0, MaxSessionTTL,
	); err != nil {
		return err
	}
	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if !validBackends.Contains(c.Backend) {
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Backend)
	}
	if c.Backend == BackendCookie && c.CookieSecret == "" {
		return ErrCookieSecretRequired
	}
	if c.Redis.TTL <= 0 || c.Redis.TTL > MaxSessionTTL {
		return fmt.Errorf("%w: %s", ErrInvalidSessionTTL, c.Redis.TTL)
	}
	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvDuration reads key from the environment as a time.Duration string
// and sets *dst if the value is in the range (min, max]
func loadEnvDuration(
	key string, dst *time.Duration, min, max time.Duration,
) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	if v <= min || v > max {
		return fmt.Errorf("invalid %s: %s out of range", key, v)
	}
	*dst = v
	return nil
}
