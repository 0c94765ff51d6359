package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redisv9.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redisv9.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "console"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, deviceID, key string) (string, bool, error) {
	if deviceID == "" {
		return "", false, ErrDeviceRequired
	}
	raw, err := s.client.Get(ctx, s.key(deviceID, key)).Result()
	if err == redisv9.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	return raw, true, nil
}

func (s *RedisStore) Set(ctx context.Context, deviceID, key, value string) error {
	if deviceID == "" {
		return ErrDeviceRequired
	}
	if err := s.client.Set(ctx, s.key(deviceID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, deviceID, key string) error {
	if deviceID == "" {
		return ErrDeviceRequired
	}
	if err := s.client.Del(ctx, s.key(deviceID, key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s failed: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(deviceID, key string) string {
	return fmt.Sprintf("%s:device:%s:%s", s.prefix, deviceID, key)
}
