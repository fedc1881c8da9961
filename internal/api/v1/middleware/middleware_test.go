package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/internal/services/session"
	"github.com/desktopathlete/athlete/pkg/httpext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		enabled    string
		requests   int
		wantLast   int
		retryAfter bool
	}{
		{"disabled lets everything through", "false", 5, http.StatusNoContent, false},
		{"within the limit", "true", 2, http.StatusNoContent, false},
		{"over the limit", "true", 3, http.StatusTooManyRequests, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RATELIMIT_ENABLED", tt.enabled)
			t.Setenv("RATELIMIT_CHAT", "2")

			handler := RateLimit("chat")(ok)

			var w *httptest.ResponseRecorder
			for i := 0; i < tt.requests; i++ {
				w = httptest.NewRecorder()
				r := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
				r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
				handler.ServeHTTP(w, r)
			}

			assert.Equal(t, tt.wantLast, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After") != "")
		})
	}
}

func TestRateLimitKeysByClient(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "true")
	t.Setenv("RATELIMIT_CHAT", "1")
	handler := RateLimit("chat")(ok)

	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
		r.Header.Set("X-Forwarded-For", ip)
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code, ip)
	}
}

func TestSessionIssuesAndReusesCookie(t *testing.T) {
	defer config.SetSessionSecret([]byte("test-secret"))()
	svc := session.NewService(nil)

	var seen []string
	handler := Session(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, SessionID(r.Context()))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)

	second := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	handler.ServeHTTP(second, r)
	assert.Empty(t, second.Result().Cookies(), "valid cookie is not replaced")

	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0])
	assert.Equal(t, seen[0], seen[1])
}

func TestSessionReplacesForgedCookie(t *testing.T) {
	defer config.SetSessionSecret([]byte("test-secret"))()
	svc := session.NewService(nil)

	var sessionID string
	handler := Session(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID = SessionID(r.Context())
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: config.GetSessionCookieName(), Value: "not-a-jwt"})
	handler.ServeHTTP(w, r)

	assert.NotEmpty(t, sessionID)
	assert.Len(t, w.Result().Cookies(), 1)
}

func TestRequestLogger(t *testing.T) {
	t.Run("generates a request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequestLogger(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Len(t, w.Header().Get(httpext.RequestIDHeader), 36)
	})

	t.Run("keeps the caller's request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.Header.Set(httpext.RequestIDHeader, "abc-123")
		RequestLogger(ok).ServeHTTP(w, r)

		assert.Equal(t, "abc-123", w.Header().Get(httpext.RequestIDHeader))
	})

	t.Run("error bodies carry the request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(httpext.RequestIDHeader, "abc-123")
		RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpext.JsonError(w, "boom", http.StatusBadGateway)
		})).ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), `"request_id":"abc-123"`)
	})
}

func TestLimitSharedAcrossRoutes(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "true")
	t.Setenv("RATELIMIT_CHAT", "2")
	limit := NewLimit("chat")
	post, upgrade := limit.Middleware(ok), limit.Middleware(ok)

	send := func(h http.Handler) int {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/chat", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, send(post))
	assert.Equal(t, http.StatusNoContent, send(upgrade))
	assert.Equal(t, http.StatusTooManyRequests, send(post))

	allowed, retryAfter := limit.Allow(httptest.NewRequest(http.MethodGet, "/v1/chat/ws", nil))
	assert.False(t, allowed)
	assert.Positive(t, retryAfter)

	var disabled *Limit
	allowed, _ = disabled.Allow(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, allowed, "a nil limit admits everything")
}
