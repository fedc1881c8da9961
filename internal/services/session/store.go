package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/desktopathlete/athlete/internal/infrastructure/redis"
)

type SessionStore interface {
	Set(ctx context.Context, sessionID string, claims *SessionClaims) error
	Get(ctx context.Context, sessionID string) (*SessionClaims, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
	lifetime     time.Duration
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func (rs *RedisStore) Set(ctx context.Context, sessionID string, claims *SessionClaims) error {
	data, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	return rs.redisService.Set(ctx, sessionKey(sessionID), string(data), rs.lifetime)
}

func (rs *RedisStore) Get(ctx context.Context, sessionID string) (*SessionClaims, error) {
	data, err := rs.redisService.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var claims SessionClaims
	if err := json.Unmarshal([]byte(data), &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, sessionKey(sessionID))
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionClaims
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*SessionClaims),
	}
}

func (ms *MemoryStore) Set(_ context.Context, sessionID string, claims *SessionClaims) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[sessionID] = claims
	return nil
}

// Get treats expired claims as absent and forgets them.
func (ms *MemoryStore) Get(_ context.Context, sessionID string) (*SessionClaims, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	claims, exists := ms.sessions[sessionID]
	if !exists {
		return nil, nil
	}
	if expired(claims, time.Now()) {
		delete(ms.sessions, sessionID)
		return nil, nil
	}
	return claims, nil
}

// sweep drops every session expired at now and returns their IDs
func (ms *MemoryStore) sweep(now time.Time) []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var removed []string
	for sessionID, claims := range ms.sessions {
		if expired(claims, now) {
			delete(ms.sessions, sessionID)
			removed = append(removed, sessionID)
		}
	}
	return removed
}

func expired(claims *SessionClaims, now time.Time) bool {
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(now)
}

func (ms *MemoryStore) Delete(_ context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, sessionID)
	return nil
}
