// Package redis implements cache.Shared on a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Store keeps values and per-user generations under a key prefix.
type Store struct {
	rdb    *goredis.Client
	prefix string
}

type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key, "bajeti:" when empty.
	Prefix string
}

// New connects to Redis and pings it once.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("missing redis address")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "bajeti:"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &Store{rdb: rdb, prefix: prefix}, nil
}

func (s *Store) genKey(userID int64) string {
	return fmt.Sprintf("%sgen:%d", s.prefix, userID)
}

func (s *Store) Generation(ctx context.Context, userID int64) (uint64, error) {
	gen, err := s.rdb.Get(ctx, s.genKey(userID)).Uint64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation of user %d: %w", userID, err)
	}
	return gen, nil
}

func (s *Store) Bump(ctx context.Context, userID int64) error {
	if err := s.rdb.Incr(ctx, s.genKey(userID)).Err(); err != nil {
		return fmt.Errorf("bump generation of user %d: %w", userID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores value for ttl. Entries of old generations are never deleted
// explicitly; they expire.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
