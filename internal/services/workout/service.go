package workout

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desktopathlete/athlete/pkg/logger"
	"github.com/google/uuid"
)

const listLimit = 50

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Record stores a completion for the session, assigning its ID and time.
func (s *Service) Record(ctx context.Context, sessionID string, c Completion) (*Completion, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session", ErrInvalidCompletion)
	}
	u, err := url.Parse(c.VideoURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: video_url must be an http(s) URL", ErrInvalidCompletion)
	}
	if c.DurationSeconds < 0 {
		return nil, fmt.Errorf("%w: negative duration", ErrInvalidCompletion)
	}

	c.ID = uuid.New().String()
	c.SessionID = sessionID
	c.CompletedAt = s.now().UTC()

	if err := s.store.SaveCompletion(ctx, &c); err != nil {
		return nil, err
	}

	logger.Info(logger.WORKOUT, "Recorded completion %s (%ds) for session %s", c.ID, c.DurationSeconds, sessionID)
	return &c, nil
}

func (s *Service) List(ctx context.Context, sessionID string) ([]*Completion, error) {
	return s.store.ListCompletions(ctx, sessionID, listLimit)
}

func (s *Service) Stats(ctx context.Context, sessionID string) (Stats, error) {
	return s.store.Stats(ctx, sessionID)
}

func (s *Service) Close() error {
	return s.store.Close()
}
