package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/desktopathlete/athlete/internal/api/v1/middleware"
	"github.com/desktopathlete/athlete/internal/assistant"
	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/internal/services"
	"github.com/desktopathlete/athlete/internal/services/conversation"
	"github.com/desktopathlete/athlete/pkg/httpext"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// progress shown to the visitor while a send moves through its states
var stateMessages = map[conversation.State]string{
	conversation.StateThreadEnsured: "Message sent",
	conversation.StatePolling:       "Waiting for the assistant...",
	conversation.StateRunDead:       "The assistant stalled, retrying...",
	conversation.StateFetching:      "Fetching the reply...",
}

// checkOrigin admits requests without an Origin header, origins listed in
// ALLOWED_ORIGINS, and otherwise only the server's own origin.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	allowed := config.GetAllowedOrigins()
	if len(allowed) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	for _, candidate := range allowed {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}

// HandleChatWebSocket runs a send for every message frame and streams its
// progress back as AssistantResponse frames. Every frame draws from limit.
func HandleChatWebSocket(svc *services.Services, limit *middleware.Limit, w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	if sessionID == "" {
		httpext.JsonError(w, "Missing session", http.StatusUnauthorized)
		return
	}

	// carry a cookie the session middleware just issued into the handshake
	header := http.Header{}
	for _, cookie := range w.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", cookie)
	}

	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("WebSocket upgrade failed")
		return
	}

	manager := svc.GetConnectionManager()
	manager.AddConnection(conn, sessionID)
	defer func() {
		manager.RemoveConnection(conn)
		conn.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	manager.KeepAlive(conn, done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	write := func(resp assistant.AssistantResponse) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := manager.WriteJSON(conn, resp); err != nil {
			log.Debug().Err(err).Str("session_id", sessionID).Msg("Failed to write websocket frame")
		}
	}

	log.Info().Str("session_id", sessionID).Int("connections", manager.GetConnectionCount()).Msg("Chat socket opened")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("Unexpected websocket closure")
			}
			cancel()
			return
		}

		var msg assistant.UserMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			write(assistant.AssistantResponse{
				RequestID: uuid.New().String(),
				Content:   "Invalid message format",
				Status:    assistant.StatusError,
			})
			continue
		}

		if allowed, retryAfter := limit.Allow(r); !allowed {
			write(assistant.AssistantResponse{
				RequestID: uuid.New().String(),
				MessageID: msg.MessageID,
				Content:   fmt.Sprintf("Rate limit exceeded, retry in %ds", int(math.Ceil(retryAfter.Seconds()))),
				Status:    assistant.StatusError,
				State:     "rate_limited",
			})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			handleChatFrame(ctx, svc, sessionID, msg, write)
		}()
	}
}

func handleChatFrame(ctx context.Context, svc *services.Services, sessionID string, msg assistant.UserMessage, write func(assistant.AssistantResponse)) {
	requestID := uuid.New().String()

	observer := func(tr conversation.Transition) {
		if tr.To.Terminal() {
			return
		}
		write(assistant.AssistantResponse{
			RequestID: requestID,
			MessageID: msg.MessageID,
			Content:   stateMessages[tr.To],
			Status:    assistant.StatusStreaming,
			State:     tr.To.String(),
			Attempt:   tr.Attempt,
			ThreadID:  tr.ThreadID,
		})
	}

	cache := svc.GetSessionService().Handles(sessionID)
	reply, err := svc.GetConversationService().Send(ctx, sessionID, cache, msg.Content, observer)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("kind", string(conversation.KindOf(err))).Msg("WebSocket send failed")
		write(assistant.AssistantResponse{
			RequestID: requestID,
			MessageID: msg.MessageID,
			Content:   err.Error(),
			Status:    assistant.StatusError,
			State:     string(conversation.KindOf(err)),
		})
		return
	}

	content := ""
	if reply.Latest != nil {
		content = reply.Latest.Content
	}
	write(assistant.AssistantResponse{
		RequestID: requestID,
		MessageID: msg.MessageID,
		Content:   content,
		Status:    assistant.StatusComplete,
		State:     conversation.StateCompleted.String(),
		Attempt:   reply.Attempts,
		ThreadID:  reply.ThreadID,
		Messages:  reply.Messages,
	})
}
