package handlers

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desktopathlete/athlete/internal/assistant"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialChat starts a TLS server (the session cookie is Secure), obtains a
// session and opens the chat socket with it.
func dialChat(t *testing.T, h *harness) *websocket.Conn {
	t.Helper()

	server := httptest.NewTLSServer(h.handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := server.Client()
	client.Jar = jar

	resp, err := client.Get(server.URL + "/v1/workouts/completions")
	require.NoError(t, err)
	resp.Body.Close()

	dialer := websocket.Dialer{
		HandshakeTimeout: time.Second,
		TLSClientConfig:  client.Transport.(*http.Transport).TLSClientConfig,
		Jar:              jar,
	}
	conn, _, err := dialer.Dial("wss"+strings.TrimPrefix(server.URL, "https")+"/v1/chat/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil collects frames until one has a non-streaming status
func readUntil(t *testing.T, conn *websocket.Conn) []assistant.AssistantResponse {
	t.Helper()

	var frames []assistant.AssistantResponse
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var frame assistant.AssistantResponse
		require.NoError(t, conn.ReadJSON(&frame))
		frames = append(frames, frame)
		if frame.Status != assistant.StatusStreaming {
			return frames
		}
	}
}

func TestChatWebSocketStreamsProgress(t *testing.T) {
	h := newHarness(t)
	h.backend.Statuses = []assistant.RunStatus{assistant.RunStatusQueued, assistant.RunStatusCompleted}
	conn := dialChat(t, h)

	require.NoError(t, conn.WriteJSON(assistant.UserMessage{Content: "20 minute HIIT", MessageID: "m1"}))
	frames := readUntil(t, conn)

	var states []string
	for _, f := range frames[:len(frames)-1] {
		assert.Equal(t, "m1", f.MessageID)
		states = append(states, f.State)
	}
	assert.Equal(t, []string{"validating", "thread_ensured", "run_pending", "polling", "polling", "polling", "fetching"}, states)

	last := frames[len(frames)-1]
	assert.Equal(t, assistant.StatusComplete, last.Status)
	assert.Equal(t, "...", last.Content)
	assert.Equal(t, 2, last.Attempt)
	assert.NotEmpty(t, last.ThreadID)
	assert.Len(t, last.Messages, 2)
	assert.Equal(t, frames[0].RequestID, last.RequestID)

	assert.Equal(t, 1, h.services.GetConnectionManager().GetConnectionCount())
}

func TestChatWebSocketReportsErrors(t *testing.T) {
	h := newHarness(t)
	conn := dialChat(t, h)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	frames := readUntil(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, assistant.StatusError, frames[0].Status)
	assert.Equal(t, "Invalid message format", frames[0].Content)

	require.NoError(t, conn.WriteJSON(assistant.UserMessage{Content: "   ", MessageID: "m2"}))
	frames = readUntil(t, conn)
	last := frames[len(frames)-1]
	assert.Equal(t, assistant.StatusError, last.Status)
	assert.Equal(t, "Please enter a valid message", last.Content)
	assert.Equal(t, "validation", last.State)
	assert.Zero(t, h.backend.Calls("create_thread"))
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed string
		origin  string
		host    string
		want    bool
	}{
		{"no origin header", "", "", "athlete.example", true},
		{"same origin", "", "https://athlete.example", "athlete.example", true},
		{"cross origin by default", "", "https://evil.example", "athlete.example", false},
		{"listed origin", "https://app.example, https://other.example", "https://other.example", "api.example", true},
		{"unlisted origin", "https://app.example", "https://evil.example", "api.example", false},
		{"wildcard", "*", "https://anything.example", "api.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ALLOWED_ORIGINS", tt.allowed)
			r := httptest.NewRequest(http.MethodGet, "/v1/chat/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(r))
		})
	}
}

func TestChatWebSocketFramesShareChatLimit(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "true")
	t.Setenv("RATELIMIT_CHAT", "2")
	h := newHarness(t)
	conn := dialChat(t, h) // the upgrade is the first hit

	require.NoError(t, conn.WriteJSON(assistant.UserMessage{Content: "20 minute HIIT", MessageID: "m1"}))
	frames := readUntil(t, conn)
	assert.Equal(t, assistant.StatusComplete, frames[len(frames)-1].Status)

	require.NoError(t, conn.WriteJSON(assistant.UserMessage{Content: "another one", MessageID: "m2"}))
	frames = readUntil(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, assistant.StatusError, frames[0].Status)
	assert.Equal(t, "rate_limited", frames[0].State)
	assert.Equal(t, "m2", frames[0].MessageID)
	assert.Equal(t, 1, h.backend.Calls("create_thread"))
}
