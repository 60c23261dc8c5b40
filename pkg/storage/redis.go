package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stepwise/formwizard/pkg/api"
)

type (
	// RedisConfig holds connection settings for a Redis-backed state store
	RedisConfig struct {
		Addr     string
		Password string
		Prefix   string
		DB       int
		TTL      time.Duration
	}

	// RedisStore persists wizard state as JSON values in Redis with a
	// per-session TTL
	RedisStore struct {
		client *redis.Client
		prefix string
		ttl    time.Duration
	}
)

const (
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "formwizard"
	DefaultSessionTTL  = 24 * time.Hour
)

var (
	ErrEncodeState = errors.New("failed to encode wizard state")
	ErrDecodeState = errors.New("failed to decode wizard state")
)

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a state store backed by the configured Redis
func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Load fetches and decodes the state stored under key
func (r *RedisStore) Load(
	ctx context.Context, key string,
) (*api.WizardState, error) {
	data, err := r.client.Get(ctx, r.stateKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var st api.WizardState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeState, err)
	}
	return &st, nil
}

// Save encodes st and stores it under key, refreshing the session TTL
func (r *RedisStore) Save(
	ctx context.Context, key string, st *api.WizardState,
) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeState, err)
	}
	return r.client.Set(ctx, r.stateKey(key), data, r.ttl).Err()
}

// Delete removes any state stored under key
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.stateKey(key)).Err()
}

// Ping verifies connectivity to the backing Redis
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) stateKey(key string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, key)
}
