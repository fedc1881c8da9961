package middleware

import (
	"context"
	"net/http"

	"github.com/desktopathlete/athlete/internal/services/session"
	"github.com/desktopathlete/athlete/pkg/httpext"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	sessionIDKey contextKey = "sessionID"
)

// Session makes sure every request carries a session, issuing a new cookie
// when the visitor has none or an invalid one.
func Session(sessionService *session.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := sessionService.ValidateSession(r)
			if err != nil {
				log.Debug().Err(err).Msg("Discarding invalid session cookie")
			}

			if claims == nil {
				claims, err = sessionService.CreateSession(r.Context(), w)
				if err != nil {
					log.Error().Err(err).Msg("Failed to create session")
					httpext.JsonError(w, "Failed to create session", http.StatusInternalServerError)
					return
				}
			}

			ctx := WithSessionID(r.Context(), claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionID returns the session attached by Session, or "".
func SessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(sessionIDKey).(string)
	return sessionID
}
