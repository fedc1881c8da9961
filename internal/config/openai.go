package config

import (
	"time"

	"github.com/desktopathlete/athlete/pkg/logger"
)

// OpenAIConfig holds the vendor API settings used by the pass-through handlers
type OpenAIConfig struct {
	Key         string
	BaseURL     string
	Timeout     time.Duration
	AssistantID string
}

// GetOpenAIConfig returns the current OpenAI settings. An empty Key means the
// service is not configured.
func GetOpenAIConfig() OpenAIConfig {
	cfg := OpenAIConfig{
		Key:         GetEnvOrDefault("OPENAI_KEY", ""),
		BaseURL:     GetEnvOrDefault("OPENAI_BASE_URL", ""),
		Timeout:     GetOpenAITimeout(),
		AssistantID: GetOpenAIAssistantID(),
	}

	if cfg.Key == "" {
		logger.Warn(logger.CONFIG, "OPENAI_KEY environment variable not set")
	}

	return cfg
}

// GetOpenAIAssistantID returns the hosted assistant that answers chat messages
func GetOpenAIAssistantID() string {
	value := GetEnvOrDefault("OPENAI_ASSISTANT_ID", "")
	if value == "" {
		logger.Warn(logger.CONFIG, "OPENAI_ASSISTANT_ID environment variable not set")
	}
	return value
}

// GetOpenAITimeout bounds a single vendor HTTP call
func GetOpenAITimeout() time.Duration {
	return parseEnvDuration("OPENAI_TIMEOUT", 8*time.Second)
}
