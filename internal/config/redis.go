package config

import (
	"time"
)

// RedisConfig locates the optional Redis backing sessions, handles and send locks.
// An empty URL keeps everything in process memory.
type RedisConfig struct {
	URL         string
	Password    string
	DB          int
	DialTimeout time.Duration
}

func GetRedisConfig() RedisConfig {
	return RedisConfig{
		URL:         GetEnvOrDefault("REDIS_URL", ""),
		Password:    GetEnvOrDefault("REDIS_PASSWORD", ""),
		DB:          parseEnvInt("REDIS_DB", 0),
		DialTimeout: parseEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
	}
}
