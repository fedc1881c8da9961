package config

import (
	"sync"
	"time"
)

var (
	sessionMu sync.RWMutex
	// SessionCookieName is the name of the session cookie
	SessionCookieName = GetEnvOrDefault("SESSION_COOKIE_NAME", "athlete_session")
)

// GetSessionCookieName returns the configured session cookie name
func GetSessionCookieName() string {
	sessionMu.RLock()
	defer sessionMu.RUnlock()
	return SessionCookieName
}

// SetSessionCookieName temporarily changes the session cookie name and returns a function to restore it
func SetSessionCookieName(name string) func() {
	sessionMu.Lock()
	previous := SessionCookieName
	SessionCookieName = name
	sessionMu.Unlock()

	return func() {
		sessionMu.Lock()
		SessionCookieName = previous
		sessionMu.Unlock()
	}
}

// GetSessionLifetime bounds both the cookie and the stored conversation handles
func GetSessionLifetime() time.Duration {
	return parseEnvDuration("SESSION_LIFETIME", time.Hour)
}
