package handlers

import (
	"net/http"

	"github.com/desktopathlete/athlete/internal/api/v1/middleware"
	"github.com/desktopathlete/athlete/internal/assistant"
	"github.com/desktopathlete/athlete/internal/services"
	"github.com/desktopathlete/athlete/internal/services/conversation"
	"github.com/desktopathlete/athlete/internal/services/render"
	"github.com/desktopathlete/athlete/pkg/httpext"
	"github.com/rs/zerolog/log"
)

// nginx's status for a client that went away before the response
const statusClientClosedRequest = 499

type ChatRequest struct {
	Message string `json:"message" validate:"max=20000"`
}

type ChatResponse struct {
	ThreadID       string                 `json:"thread_id"`
	Messages       []assistant.Message    `json:"messages"`
	Latest         *assistant.Message     `json:"latest,omitempty"`
	LatestHTML     string                 `json:"latest_html,omitempty"`
	Recommendation *render.Recommendation `json:"recommendation,omitempty"`
	Attempts       int                    `json:"attempts"`
	RunRetries     int                    `json:"run_retries"`
}

// statusForError maps a send failure to the HTTP status the chat endpoint returns
func statusForError(err error) int {
	switch conversation.KindOf(err) {
	case conversation.KindValidation:
		return http.StatusBadRequest
	case conversation.KindBusy:
		return http.StatusConflict
	case conversation.KindUpstream:
		return http.StatusBadGateway
	case conversation.KindLiveness:
		return http.StatusGatewayTimeout
	case conversation.KindCancelled:
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func buildChatResponse(renderer *render.Renderer, reply *conversation.Reply) ChatResponse {
	resp := ChatResponse{
		ThreadID:   reply.ThreadID,
		Messages:   reply.Messages,
		Latest:     reply.Latest,
		Attempts:   reply.Attempts,
		RunRetries: reply.RunRetries,
	}
	if resp.Messages == nil {
		resp.Messages = []assistant.Message{}
	}

	if reply.Latest != nil {
		html, err := renderer.Markdown(reply.Latest.Content)
		if err != nil {
			log.Warn().Err(err).Str("thread_id", reply.ThreadID).Msg("Failed to render assistant reply")
		}
		resp.LatestHTML = html
		resp.Recommendation = renderer.Recommendation(reply.Latest.Content)
	}
	return resp
}

// HandleChat sends the visitor's message on their session's conversation and
// answers with the assistant's reply
func HandleChat(svc *services.Services, w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	if sessionID == "" {
		httpext.JsonError(w, "Missing session", http.StatusUnauthorized)
		return
	}

	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed chat request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	cache := svc.GetSessionService().Handles(sessionID)
	reply, err := svc.GetConversationService().Send(r.Context(), sessionID, cache, req.Message)
	if err != nil {
		status := statusForError(err)
		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).Str("session_id", sessionID).Str("kind", string(conversation.KindOf(err))).Msg("Chat send failed")

		httpext.JsonErrorWithDetails(w, status, httpext.ErrorResponse{
			Error:            err.Error(),
			ErrorDescription: string(conversation.KindOf(err)),
		})
		return
	}

	httpext.JsonResponse(w, http.StatusOK, buildChatResponse(svc.GetRenderer(), reply))
}

// HandleResetChat forgets the session's conversation so the next message starts a new thread
func HandleResetChat(svc *services.Services, w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	if sessionID == "" {
		httpext.JsonError(w, "Missing session", http.StatusUnauthorized)
		return
	}

	cache := svc.GetSessionService().Handles(sessionID)
	if err := svc.GetConversationService().Reset(r.Context(), cache); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to reset conversation")
		httpext.JsonError(w, "Failed to reset conversation", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
