package config

import (
	"os"
	"sync"

	"github.com/desktopathlete/athlete/pkg/logger"
)

const (
	minSessionSecretLength = 32
	devSessionSecret       = "athlete-development-session-secret"
)

var (
	sessionSecretMu sync.RWMutex
	sessionSecret   []byte
)

// loadSessionSecret reads SESSION_SECRET, or JWT_SECRET for older deployments.
func loadSessionSecret() []byte {
	for _, key := range []string{"SESSION_SECRET", "JWT_SECRET"} {
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		if len(value) < minSessionSecretLength {
			logger.Warn(logger.CONFIG, "%s is shorter than %d bytes", key, minSessionSecretLength)
		}
		return []byte(value)
	}

	logger.Warn(logger.CONFIG, "SESSION_SECRET not set - signing sessions with the development secret")
	return []byte(devSessionSecret)
}

// GetSessionSecret returns the HMAC key for session cookies, loading it on first use
func GetSessionSecret() []byte {
	sessionSecretMu.RLock()
	secret := sessionSecret
	sessionSecretMu.RUnlock()
	if secret != nil {
		return secret
	}

	sessionSecretMu.Lock()
	defer sessionSecretMu.Unlock()
	if sessionSecret == nil {
		sessionSecret = loadSessionSecret()
	}
	return sessionSecret
}

// SetSessionSecret swaps the key and returns a func restoring the previous one
func SetSessionSecret(secret []byte) func() {
	previous := GetSessionSecret()

	sessionSecretMu.Lock()
	sessionSecret = secret
	sessionSecretMu.Unlock()

	return func() {
		sessionSecretMu.Lock()
		sessionSecret = previous
		sessionSecretMu.Unlock()
	}
}
