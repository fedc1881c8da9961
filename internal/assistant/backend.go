package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Backend is the set of vendor operations a send operation is built from.
type Backend interface {
	// CreateThread starts a conversation seeded with the first user message.
	CreateThread(ctx context.Context, seed string) (*Thread, error)
	// CreateMessage appends a user message to an existing thread.
	CreateMessage(ctx context.Context, threadID, content string) (*Message, error)
	// CreateRun starts an assistant turn, or returns the thread's unfinished run if
	// there is one.
	CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error)
	// ListMessages returns the thread's messages, oldest first.
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
}

// UpstreamError is a failed vendor call, carrying the vendor's message when it sent one
type UpstreamError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the vendor did not know the requested resource.
func (e *UpstreamError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// UpstreamMessage returns the vendor-provided message carried by err, if any.
func UpstreamMessage(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Message
	}
	return ""
}

// UpstreamStatus returns the HTTP status carried by err, or 0.
func UpstreamStatus(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode
	}
	return 0
}
