package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/desktopathlete/athlete/internal/assistant"
	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/pkg/httpext"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

type CreateThreadRequest struct {
	InitialMessage string `json:"initial_message" validate:"required"`
}

type CreateMessageRequest struct {
	Question string `json:"question" validate:"required"`
}

type CreateRunRequest struct {
	AssistantID string `json:"assistant_id,omitempty"`
}

type MessageList struct {
	Messages []assistant.Message `json:"messages"`
}

// decodeBody decodes an optional JSON body into v and validates it. An empty
// body decodes to the zero value.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}
	return validate.Struct(v)
}

// writeUpstreamError relays a failed vendor call. Client errors keep their
// status; everything else is a bad gateway.
func writeUpstreamError(w http.ResponseWriter, err error, fallback string) {
	status := assistant.UpstreamStatus(err)
	if status < 400 || status >= 500 {
		status = http.StatusBadGateway
	}

	message := assistant.UpstreamMessage(err)
	if message == "" {
		message = fallback
	}
	httpext.JsonError(w, message, status)
}

// HandleCreateThread starts a thread seeded with the visitor's first message
func HandleCreateThread(backend assistant.Backend, w http.ResponseWriter, r *http.Request) {
	var req CreateThreadRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.InitialMessage) == "" {
		log.Warn().Err(err).Msg("Create thread request without initial message")
		httpext.JsonError(w, "Missing initial_message parameter", http.StatusBadRequest)
		return
	}

	thread, err := backend.CreateThread(r.Context(), req.InitialMessage)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create thread")
		writeUpstreamError(w, err, "Failed to create thread")
		return
	}

	log.Info().Str("thread_id", thread.ID).Msg("Thread created")
	httpext.JsonResponse(w, http.StatusOK, thread)
}

// HandleCreateMessage appends a visitor message to an existing thread
func HandleCreateMessage(backend assistant.Backend, w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]

	var req CreateMessageRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Question) == "" {
		log.Warn().Err(err).Str("thread_id", threadID).Msg("Create message request without question")
		httpext.JsonError(w, "Missing question parameter", http.StatusBadRequest)
		return
	}

	if max := config.GetPassthroughMaxMessageLength(); utf8.RuneCountInString(req.Question) > max {
		httpext.JsonError(w, fmt.Sprintf("Question exceeds maximum length of %d characters", max), http.StatusBadRequest)
		return
	}

	msg, err := backend.CreateMessage(r.Context(), threadID, req.Question)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("Failed to create message")
		writeUpstreamError(w, err, "Failed to create message")
		return
	}

	httpext.JsonResponse(w, http.StatusOK, msg)
}

// HandleCreateRun starts an assistant turn, reusing the thread's active run
func HandleCreateRun(backend assistant.Backend, defaultAssistantID string, w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]

	var req CreateRunRequest
	if err := decodeBody(r, &req); err != nil {
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	assistantID := req.AssistantID
	if assistantID == "" {
		assistantID = defaultAssistantID
	}
	if assistantID == "" {
		httpext.JsonError(w, "Missing assistant_id parameter", http.StatusBadRequest)
		return
	}

	run, err := backend.CreateRun(r.Context(), threadID, assistantID)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("Failed to run thread")
		writeUpstreamError(w, err, "Failed to run thread")
		return
	}

	log.Debug().Str("thread_id", threadID).Str("run_id", run.ID).Str("status", string(run.Status)).Msg("Run started")
	httpext.JsonResponse(w, http.StatusOK, run)
}

func HandleRetrieveRun(backend assistant.Backend, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	run, err := backend.RetrieveRun(r.Context(), vars["threadID"], vars["runID"])
	if err != nil {
		writeUpstreamError(w, err, "Failed to retrieve run")
		return
	}

	httpext.JsonResponse(w, http.StatusOK, run)
}

// HandleListMessages returns the thread's messages, oldest first, with content
// flattened to text
func HandleListMessages(backend assistant.Backend, w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]

	messages, err := backend.ListMessages(r.Context(), threadID)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("Failed to list messages")
		writeUpstreamError(w, err, "Failed to list messages")
		return
	}

	httpext.JsonResponse(w, http.StatusOK, MessageList{Messages: messages})
}
