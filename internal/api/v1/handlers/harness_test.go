package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/desktopathlete/athlete/internal/api/v1/middleware"
	"github.com/desktopathlete/athlete/internal/assistant/assistanttest"
	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/internal/services"
	"github.com/desktopathlete/athlete/internal/services/workout"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type harness struct {
	backend  *assistanttest.Backend
	services *services.Services
	handler  http.Handler
	cookies  []*http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	t.Setenv("CONVERSATION_POLL_INTERVAL", "1ms")
	t.Cleanup(config.SetSessionSecret([]byte("test-secret")))

	store, err := workout.NewSQLiteStore(filepath.Join(t.TempDir(), "workouts.db"))
	require.NoError(t, err)

	backend := assistanttest.NewBackend()
	svc := services.New(backend, "asst_1", nil, store)
	t.Cleanup(func() { _ = svc.Close() })

	router := mux.NewRouter()
	RegisterV1Routes(router, svc)

	return &harness{
		backend:  backend,
		services: svc,
		handler:  middleware.RequestLogger(router),
	}
}

// do sends a request through the router, replaying and collecting session cookies
func (h *harness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	for _, c := range h.cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, r)

	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		h.cookies = cookies
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}
