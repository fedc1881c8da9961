package config

import (
	"time"

	"github.com/desktopathlete/athlete/pkg/logger"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true"

	configs := map[string]RateLimitConfig{
		"chat": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_CHAT", 30), // 30 sends per minute
			Window:  time.Minute,
		},
		"threads": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_THREADS", 120), // pass-through calls include polling
			Window:  time.Minute,
		},
		"workouts": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_WORKOUTS", 60),
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	logger.Warn(logger.CONFIG, "No rate limit config found for key: %s", key)
	return RateLimitConfig{Enabled: false}
}
