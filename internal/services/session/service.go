package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/internal/infrastructure/redis"
	"github.com/desktopathlete/athlete/internal/services/conversation"
	"github.com/desktopathlete/athlete/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// sweepInterval paces eviction of expired in-memory sessions
const sweepInterval = time.Minute

type Service struct {
	store    SessionStore
	handles  handleStore
	guard    conversation.Guard
	lifetime time.Duration

	stop      chan struct{}
	closeOnce sync.Once
}

// NewService keeps sessions, conversation handles and send locks in Redis when
// it answers a ping, and in process memory otherwise.
func NewService(redisService *redis.Service) *Service {
	lifetime := config.GetSessionLifetime()

	if redisService != nil {
		if err := redisService.Ping(context.Background()); err == nil {
			logger.Info(logger.SESSION, "Using Redis session store")
			return &Service{
				store:    &RedisStore{redisService: redisService, lifetime: lifetime},
				handles:  &redisHandleStore{redisService: redisService, ttl: lifetime},
				guard:    NewRedisGuard(redisService, SendLockTTL(config.GetConversationConfig(), config.GetOpenAITimeout())),
				lifetime: lifetime,
				stop:     make(chan struct{}),
			}
		}
		logger.Warn(logger.SESSION, "Redis unreachable, falling back to memory session store")
	}

	s := &Service{
		store:    newMemoryStore(),
		handles:  newMemoryHandleStore(),
		guard:    conversation.NewMemoryGuard(),
		lifetime: lifetime,
		stop:     make(chan struct{}),
	}
	go s.sweepLoop(sweepInterval)
	return s
}

func (s *Service) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sweep(time.Now()); n > 0 {
				logger.Debug(logger.SESSION, "Evicted %d expired sessions", n)
			}
		case <-s.stop:
			return
		}
	}
}

// sweep evicts in-memory sessions expired at now along with their handles.
// Redis expires its keys on its own.
func (s *Service) sweep(now time.Time) int {
	ms, ok := s.store.(*MemoryStore)
	if !ok {
		return 0
	}

	removed := ms.sweep(now)
	for _, sessionID := range removed {
		s.handles.drop(sessionID)
	}
	return len(removed)
}

// Close stops the eviction loop. It is safe to call more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
}

// CreateSession generates a new session cookie and sets it in the response
func (s *Service) CreateSession(ctx context.Context, w http.ResponseWriter) (*SessionClaims, error) {
	now := time.Now()
	sessionID := uuid.New().String()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
		},
		SessionID: sessionID,
	}

	if err := s.store.Set(ctx, sessionID, claims); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(config.GetSessionSecret())
	if err != nil {
		return nil, fmt.Errorf("signing session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Expires:  now.Add(s.lifetime),
	})

	logger.Debug(logger.SESSION, "Created session %s", sessionID)
	return claims, nil
}

// ValidateSession returns the claims of a valid, still stored session cookie.
// A missing or unknown session yields nil claims and no error.
func (s *Service) ValidateSession(r *http.Request) (*SessionClaims, error) {
	cookie, err := r.Cookie(config.GetSessionCookieName())
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	claims, err := parseClaims(cookie.Value)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.Get(r.Context(), claims.SessionID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		s.handles.drop(claims.SessionID)
		return nil, nil
	}
	return claims, nil
}

// ClearSession removes the session cookie along with everything stored for it
func (s *Service) ClearSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(config.GetSessionCookieName()); err == nil {
		if claims, err := parseClaims(cookie.Value); err == nil {
			if err := s.store.Delete(ctx, claims.SessionID); err != nil {
				logger.Warn(logger.SESSION, "Failed to delete session %s: %v", claims.SessionID, err)
			}
			if err := s.Handles(claims.SessionID).Clear(ctx); err != nil {
				logger.Warn(logger.SESSION, "Failed to clear handles of session %s: %v", claims.SessionID, err)
			}
			s.handles.drop(claims.SessionID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}

// Handles returns the conversation handle cache of a session
func (s *Service) Handles(sessionID string) conversation.HandleCache {
	return s.handles.forSession(sessionID)
}

// Guard returns the send lock shared by every session
func (s *Service) Guard() conversation.Guard {
	return s.guard
}

func parseClaims(value string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return config.GetSessionSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}
