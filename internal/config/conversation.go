package config

import (
	"time"
)

// ConversationConfig bounds a single send operation
type ConversationConfig struct {
	MaxMessageLength int
	PollInterval     time.Duration
	MaxPollAttempts  int
	MaxRunRetries    int
}

func GetConversationConfig() ConversationConfig {
	return ConversationConfig{
		MaxMessageLength: parseEnvInt("CONVERSATION_MAX_MESSAGE_LENGTH", 800),
		PollInterval:     parseEnvDuration("CONVERSATION_POLL_INTERVAL", 1500*time.Millisecond),
		MaxPollAttempts:  parseEnvInt("CONVERSATION_MAX_POLL_ATTEMPTS", 10),
		MaxRunRetries:    parseEnvInt("CONVERSATION_MAX_RUN_RETRIES", 3),
	}
}

// GetPassthroughMaxMessageLength caps the create-message pass-through endpoint
func GetPassthroughMaxMessageLength() int {
	return parseEnvInt("PASSTHROUGH_MAX_MESSAGE_LENGTH", 1000)
}
