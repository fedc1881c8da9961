package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/desktopathlete/athlete/internal/infrastructure/redis"
	"github.com/desktopathlete/athlete/internal/services/conversation"
)

type handleStore interface {
	forSession(sessionID string) conversation.HandleCache
	// drop forgets everything kept for an ended session
	drop(sessionID string)
}

type redisHandleStore struct {
	redisService *redis.Service
	ttl          time.Duration
}

func (s *redisHandleStore) forSession(sessionID string) conversation.HandleCache {
	return &RedisHandleCache{redisService: s.redisService, key: "handles:" + sessionID, ttl: s.ttl}
}

// Redis keys expire with the session.
func (s *redisHandleStore) drop(string) {}

// RedisHandleCache keeps one session's conversation handles as JSON under a
// key that expires with the session.
type RedisHandleCache struct {
	redisService *redis.Service
	key          string
	ttl          time.Duration
}

func (c *RedisHandleCache) Load(ctx context.Context) (conversation.Handles, error) {
	data, err := c.redisService.Get(ctx, c.key)
	if errors.Is(err, redis.ErrNotFound) {
		return conversation.Handles{}, nil
	}
	if err != nil {
		return conversation.Handles{}, err
	}

	var handles conversation.Handles
	if err := json.Unmarshal([]byte(data), &handles); err != nil {
		return conversation.Handles{}, err
	}
	return handles, nil
}

func (c *RedisHandleCache) Save(ctx context.Context, handles conversation.Handles) error {
	data, err := json.Marshal(handles)
	if err != nil {
		return err
	}
	return c.redisService.Set(ctx, c.key, string(data), c.ttl)
}

func (c *RedisHandleCache) Clear(ctx context.Context) error {
	return c.redisService.Delete(ctx, c.key)
}

type memoryHandleStore struct {
	mu     sync.Mutex
	caches map[string]*conversation.MemoryCache
}

func newMemoryHandleStore() *memoryHandleStore {
	return &memoryHandleStore{caches: make(map[string]*conversation.MemoryCache)}
}

func (s *memoryHandleStore) forSession(sessionID string) conversation.HandleCache {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, ok := s.caches[sessionID]
	if !ok {
		cache = conversation.NewMemoryCache()
		s.caches[sessionID] = cache
	}
	return cache
}

func (s *memoryHandleStore) drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, sessionID)
}

func (s *memoryHandleStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.caches)
}
