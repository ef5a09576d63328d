// Package redis stores the checkpoint under a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/adfiller/internal/checkpoint"
)

// DefaultKey is used when Config.Key is empty.
const DefaultKey = "adfiller:last_success_id"

// Config describes the Redis connection.
type Config struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type kv interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// Store implements ad.CheckpointStore on Redis.
type Store struct {
	client kv
	closer func() error
	key    string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, fmt.Errorf("checkpoint.redis.address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s := NewWithClient(client, cfg.Key)
	s.closer = client.Close
	return s, nil
}

// NewWithClient wraps an existing client (primarily for testing).
func NewWithClient(client kv, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Load reads the identifier stored under the key.
func (s *Store) Load(ctx context.Context) (int64, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, checkpoint.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %q: %w", raw, err)
	}
	return id, nil
}

// Save overwrites the key with id. The key never expires.
func (s *Store) Save(ctx context.Context, id int64) error {
	if err := s.client.Set(ctx, s.key, strconv.FormatInt(id, 10), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Close releases the client when the store owns it.
func (s *Store) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}
