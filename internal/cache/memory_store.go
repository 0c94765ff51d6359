package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps device values in process. Used in dev and tests.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryStore{cache: gocache.New(ttl, 10*time.Minute)}
}

func (s *MemoryStore) Get(_ context.Context, deviceID, key string) (string, bool, error) {
	if deviceID == "" {
		return "", false, ErrDeviceRequired
	}
	v, found := s.cache.Get(memoryKey(deviceID, key))
	if !found {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (s *MemoryStore) Set(_ context.Context, deviceID, key, value string) error {
	if deviceID == "" {
		return ErrDeviceRequired
	}
	s.cache.Set(memoryKey(deviceID, key), value, gocache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, deviceID, key string) error {
	if deviceID == "" {
		return ErrDeviceRequired
	}
	s.cache.Delete(memoryKey(deviceID, key))
	return nil
}

func memoryKey(deviceID, key string) string {
	return deviceID + "\x00" + key
}
