package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// visitedKeyPrefix namespaces visited-set keys in a shared Redis.
const visitedKeyPrefix = "wikindex:visited:"

// RedisVisited is a visited set kept in Redis so that several crawler
// processes can share it.
type RedisVisited struct {
	client *redis.Client

	// ttl expires visited keys. Zero keeps them forever.
	ttl time.Duration
}

// RedisOption configures a RedisVisited.
type RedisOption func(*RedisVisited)

// WithVisitedTTL makes visited marks expire after ttl.
func WithVisitedTTL(ttl time.Duration) RedisOption {
	return func(r *RedisVisited) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedisVisited creates a RedisVisited using client.
func NewRedisVisited(client *redis.Client, opts ...RedisOption) *RedisVisited {
	r := &RedisVisited{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DialRedis connects to addr and verifies the connection with PING.
// addr may be a host:port pair or a redis:// URL.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// visitedKey returns the Redis key for url. URLs are hashed to keep keys short.
func visitedKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return visitedKeyPrefix + hex.EncodeToString(sum[:])
}

// IsVisited reports whether url has been marked visited.
func (r *RedisVisited) IsVisited(ctx context.Context, url string) (bool, error) {
	n, err := r.client.Exists(ctx, visitedKey(url)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check visited url in redis: %w", err)
	}
	return n == 1, nil
}

// MarkVisited marks url visited. It is idempotent.
func (r *RedisVisited) MarkVisited(ctx context.Context, url string) error {
	if err := r.client.Set(ctx, visitedKey(url), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark url visited in redis: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisVisited) Close() error {
	return r.client.Close()
}

// VisitedSet is the durable visited-set contract shared by CorpusDB and
// RedisVisited.
type VisitedSet interface {
	IsVisited(ctx context.Context, url string) (bool, error)
	MarkVisited(ctx context.Context, url string) error
}

// MultiVisited combines several visited sets. A URL is visited if any set
// says so; marks go to every set.
type MultiVisited struct {
	sets []VisitedSet
}

// NewMultiVisited creates a MultiVisited over sets, skipping nil entries.
func NewMultiVisited(sets ...VisitedSet) *MultiVisited {
	m := &MultiVisited{}
	for _, s := range sets {
		if s != nil {
			m.sets = append(m.sets, s)
		}
	}
	return m
}

// IsVisited returns true as soon as one set reports url visited.
// Errors are returned only if no set could answer positively.
func (m *MultiVisited) IsVisited(ctx context.Context, url string) (bool, error) {
	var errs []error
	for _, s := range m.sets {
		ok, err := s.IsVisited(ctx, url)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// MarkVisited marks url in every set and joins their errors.
func (m *MultiVisited) MarkVisited(ctx context.Context, url string) error {
	var errs []error
	for _, s := range m.sets {
		if err := s.MarkVisited(ctx, url); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
