package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tubeharvest/harvester/internal/logger"
)

// Store caches raw upstream page bodies in Redis with a fixed TTL. It is
// best-effort: cache errors are logged and treated as misses so a flaky
// Redis never blocks a fetch.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewStore creates a page cache on top of an established Redis client.
func NewStore(client *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get retrieves a cached page body. The second return is false on a miss
// or any Redis error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := s.client.Get(ctx, PageKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Debug("page cache read failed",
				logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	return body, true
}

// Set stores a page body under the cache TTL. Failures are logged only.
func (s *Store) Set(ctx context.Context, key string, body []byte) {
	if err := s.client.Set(ctx, PageKey(key), body, s.ttl).Err(); err != nil {
		s.log.Debug("page cache write failed",
			logger.String("key", key), logger.Error(err))
	}
}

// Flush removes every cached page.
func (s *Store) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixPage+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Ping reports whether the Redis backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
