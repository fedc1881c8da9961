package handlers

import (
	"errors"
	"net/http"

	"github.com/desktopathlete/athlete/internal/api/v1/middleware"
	"github.com/desktopathlete/athlete/internal/services/workout"
	"github.com/desktopathlete/athlete/pkg/httpext"
	"github.com/rs/zerolog/log"
)

type RecordCompletionRequest struct {
	VideoURL        string `json:"video_url" validate:"required,url,max=2048"`
	Title           string `json:"title" validate:"max=200"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0,lte=86400"`
}

type CompletionList struct {
	Completions []*workout.Completion `json:"completions"`
	Stats       workout.Stats         `json:"stats"`
}

func HandleRecordCompletion(workouts *workout.Service, w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	var req RecordCompletionRequest
	if err := decodeBody(r, &req); err != nil {
		log.Warn().Err(err).Msg("Invalid workout completion")
		httpext.JsonError(w, "Invalid workout completion: video_url must be a URL and duration_seconds between 0 and 86400", http.StatusBadRequest)
		return
	}

	completion, err := workouts.Record(r.Context(), sessionID, workout.Completion{
		VideoURL:        req.VideoURL,
		Title:           req.Title,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		if errors.Is(err, workout.ErrInvalidCompletion) {
			httpext.JsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to record workout completion")
		httpext.JsonError(w, "Failed to record workout", http.StatusInternalServerError)
		return
	}

	httpext.JsonResponse(w, http.StatusCreated, completion)
}

func HandleListCompletions(workouts *workout.Service, w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	completions, err := workouts.List(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to list workout completions")
		httpext.JsonError(w, "Failed to list workouts", http.StatusInternalServerError)
		return
	}
	stats, err := workouts.Stats(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to compute workout stats")
		httpext.JsonError(w, "Failed to list workouts", http.StatusInternalServerError)
		return
	}

	if completions == nil {
		completions = []*workout.Completion{}
	}
	httpext.JsonResponse(w, http.StatusOK, CompletionList{Completions: completions, Stats: stats})
}
