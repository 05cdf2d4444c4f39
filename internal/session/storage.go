package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	storagePrefix  = "session:"
	storageTimeout = 3 * time.Second
)

// RedisStorage implements fiber.Storage on top of go-redis so sessions survive
// restarts and are shared between instances.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage wraps an existing client. Keys are namespaced under "session:".
func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client, prefix: storagePrefix}
}

func (s *RedisStorage) key(id string) string {
	return s.prefix + id
}

// Get returns nil, nil for unknown or expired sessions.
func (s *RedisStorage) Get(id string) ([]byte, error) {
	if id == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores val under id; exp <= 0 means no expiry.
func (s *RedisStorage) Set(id string, val []byte, exp time.Duration) error {
	if id == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	if exp < 0 {
		exp = 0
	}
	return s.client.Set(ctx, s.key(id), val, exp).Err()
}

func (s *RedisStorage) Delete(id string) error {
	if id == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	return s.client.Del(ctx, s.key(id)).Err()
}

// Reset removes every session key, leaving other data in the database alone.
func (s *RedisStorage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Close is a no-op: the client is shared with the cache and rate limiter and
// is closed by its owner.
func (s *RedisStorage) Close() error {
	return nil
}
