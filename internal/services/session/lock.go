package session

import (
	"context"
	"time"

	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/internal/infrastructure/redis"
	"github.com/desktopathlete/athlete/internal/services/conversation"
	"github.com/desktopathlete/athlete/pkg/logger"
	"github.com/google/uuid"
)

// lockMargin covers Redis round trips and scheduling on top of the vendor calls
const lockMargin = 30 * time.Second

// SendLockTTL is the longest a send can take under cfg when every vendor call
// runs to callTimeout: the thread call, list and create for each run, every
// poll and its wait, and the final message list.
func SendLockTTL(cfg config.ConversationConfig, callTimeout time.Duration) time.Duration {
	runs := cfg.MaxRunRetries
	if runs < 1 {
		runs = 1
	}
	calls := 1 + 2*runs + cfg.MaxPollAttempts + 1

	waits := 0
	if cfg.MaxPollAttempts > 1 {
		waits = cfg.MaxPollAttempts - 1
	}

	return time.Duration(waits)*cfg.PollInterval + time.Duration(calls)*callTimeout + lockMargin
}

// RedisGuard admits one send per key across every server instance
type RedisGuard struct {
	redisService *redis.Service
	ttl          time.Duration
}

func NewRedisGuard(redisService *redis.Service, ttl time.Duration) *RedisGuard {
	return &RedisGuard{redisService: redisService, ttl: ttl}
}

func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	token := uuid.New().String()

	ok, err := g.redisService.SetNX(ctx, lockKey, token, g.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conversation.ErrBusy
	}

	return func() {
		// The request context may already be done by the time we release.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := g.redisService.DeleteIfValue(ctx, lockKey, token); err != nil {
			logger.Warn(logger.SESSION, "Failed to release send lock %s: %v", lockKey, err)
		}
	}, nil
}
