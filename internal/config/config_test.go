package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns default when env not set",
			key:          "TEST_KEY_1",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
		{
			name:         "returns env value when set",
			key:          "TEST_KEY_2",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)
			assert.Equal(t, tt.want, GetEnvOrDefault(tt.key, tt.defaultValue))
		})
	}
}

func TestGetConversationConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := GetConversationConfig()
		assert.Equal(t, 800, cfg.MaxMessageLength)
		assert.Equal(t, 1500*time.Millisecond, cfg.PollInterval)
		assert.Equal(t, 10, cfg.MaxPollAttempts)
		assert.Equal(t, 3, cfg.MaxRunRetries)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("CONVERSATION_MAX_MESSAGE_LENGTH", "1000")
		t.Setenv("CONVERSATION_POLL_INTERVAL", "2s")
		t.Setenv("CONVERSATION_MAX_POLL_ATTEMPTS", "20")
		t.Setenv("CONVERSATION_MAX_RUN_RETRIES", "5")

		cfg := GetConversationConfig()
		assert.Equal(t, 1000, cfg.MaxMessageLength)
		assert.Equal(t, 2*time.Second, cfg.PollInterval)
		assert.Equal(t, 20, cfg.MaxPollAttempts)
		assert.Equal(t, 5, cfg.MaxRunRetries)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("CONVERSATION_POLL_INTERVAL", "soon")
		t.Setenv("CONVERSATION_MAX_POLL_ATTEMPTS", "-4")

		cfg := GetConversationConfig()
		assert.Equal(t, 1500*time.Millisecond, cfg.PollInterval)
		assert.Equal(t, 10, cfg.MaxPollAttempts)
	})
}

func TestGetRateLimitConfig(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "true")
	t.Setenv("RATELIMIT_CHAT", "5")

	cfg := GetRateLimitConfig("chat")
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5, cfg.MaxHits)
	assert.Equal(t, time.Minute, cfg.Window)

	assert.False(t, GetRateLimitConfig("unknown").Enabled)
}

func TestGetAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://www.desktopathlete.com , ,http://localhost:5173")
	assert.Equal(t, []string{"https://www.desktopathlete.com", "http://localhost:5173"}, GetAllowedOrigins())

	t.Setenv("ALLOWED_ORIGINS", "")
	assert.Nil(t, GetAllowedOrigins())
}

func TestSessionSecret(t *testing.T) {
	originalSecret := GetSessionSecret()
	newSecret := []byte("test-secret")

	t.Run("set and restore", func(t *testing.T) {
		restore := SetSessionSecret(newSecret)
		assert.Equal(t, newSecret, GetSessionSecret())

		restore()
		assert.Equal(t, originalSecret, GetSessionSecret())
	})

	t.Run("concurrent access", func(t *testing.T) {
		done := make(chan bool)
		for i := 0; i < 10; i++ {
			go func() {
				GetSessionSecret()
				done <- true
			}()
		}

		for i := 0; i < 10; i++ {
			<-done
		}
	})
}

func TestSessionCookieName(t *testing.T) {
	restore := SetSessionCookieName("test_session")
	assert.Equal(t, "test_session", GetSessionCookieName())
	restore()
	assert.Equal(t, "athlete_session", GetSessionCookieName())
}

func TestLoadSessionSecret(t *testing.T) {
	tests := []struct {
		name    string
		session string
		jwt     string
		want    string
	}{
		{"session secret wins", "s-secret", "j-secret", "s-secret"},
		{"jwt secret fallback", "", "j-secret", "j-secret"},
		{"development default", "", "", devSessionSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SESSION_SECRET", tt.session)
			t.Setenv("JWT_SECRET", tt.jwt)
			assert.Equal(t, []byte(tt.want), loadSessionSecret())
		})
	}
}

func TestGetRedisConfig(t *testing.T) {
	t.Setenv("REDIS_URL", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_DIAL_TIMEOUT", "bogus")

	cfg := GetRedisConfig()
	assert.Equal(t, "localhost:6379", cfg.URL)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}
