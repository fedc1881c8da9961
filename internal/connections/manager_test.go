package connections

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketPair returns the server and client ends of a live websocket
func socketPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	conn := <-serverConns
	t.Cleanup(func() { conn.Close() })
	return conn, client
}

func TestManagerTracksSessions(t *testing.T) {
	manager := NewManager(DefaultTimeouts)
	a1, a2, b1 := &websocket.Conn{}, &websocket.Conn{}, &websocket.Conn{}

	manager.AddConnection(a1, "session-a")
	manager.AddConnection(a2, "session-a")
	manager.AddConnection(b1, "session-b")

	tests := []struct {
		session string
		want    int
	}{
		{"session-a", 2},
		{"session-b", 1},
		{"session-c", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, manager.SessionConnectionCount(tt.session), tt.session)
	}
	assert.Equal(t, 3, manager.GetConnectionCount())

	manager.RemoveConnection(a1)
	assert.False(t, manager.HasConnection(a1))
	assert.True(t, manager.HasConnection(a2))
	assert.Equal(t, 1, manager.SessionConnectionCount("session-a"))

	manager.RemoveConnection(a1)
	assert.Equal(t, 2, manager.GetConnectionCount(), "removing twice is harmless")
}

func TestManagerConcurrentAccess(t *testing.T) {
	manager := NewManager(DefaultTimeouts)

	const n = 100
	conns := make([]*websocket.Conn, n)
	for i := range conns {
		conns[i] = &websocket.Conn{}
	}

	var wg sync.WaitGroup
	for i, conn := range conns {
		wg.Add(1)
		go func(i int, conn *websocket.Conn) {
			defer wg.Done()
			manager.AddConnection(conn, fmt.Sprintf("session-%d", i%4))
			_ = manager.SessionConnectionCount("session-0")
		}(i, conn)
	}
	wg.Wait()
	assert.Equal(t, n, manager.GetConnectionCount())
	assert.Equal(t, n/4, manager.SessionConnectionCount("session-0"))

	for _, conn := range conns {
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			manager.RemoveConnection(conn)
		}(conn)
	}
	wg.Wait()
	assert.Zero(t, manager.GetConnectionCount())
}

func TestManagerTimeouts(t *testing.T) {
	manager := NewManager(DefaultTimeouts)
	assert.Equal(t, DefaultTimeouts, manager.GetTimeouts())

	custom := TimeoutConfig{PongWait: time.Second, PingPeriod: 900 * time.Millisecond, WriteWait: time.Second}
	manager.SetTimeouts(custom)
	assert.Equal(t, custom, manager.GetTimeouts())
}

func TestManagerWriteJSON(t *testing.T) {
	manager := NewManager(DefaultTimeouts)
	conn, client := socketPair(t)

	require.NoError(t, manager.WriteJSON(conn, map[string]string{"status": "complete"}))

	var got map[string]string
	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "complete", got["status"])
}

func TestManagerKeepAlivePings(t *testing.T) {
	manager := NewManager(TimeoutConfig{
		PongWait:   time.Second,
		PingPeriod: 20 * time.Millisecond,
		WriteWait:  time.Second,
	})
	conn, client := socketPair(t)

	pings := make(chan struct{}, 10)
	client.SetPingHandler(func(string) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return nil
	})
	// control frames are only handled while the client reads
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	done := make(chan struct{})
	defer close(done)
	manager.KeepAlive(conn, done)

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}
