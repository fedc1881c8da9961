package conversation

import (
	"errors"
	"fmt"

	"github.com/desktopathlete/athlete/internal/assistant"
)

// Kind groups send failures by how the caller should react
type Kind string

const (
	// KindValidation is bad input, rejected before any vendor call.
	KindValidation Kind = "validation"
	// KindUpstream is a vendor call that failed outright.
	KindUpstream Kind = "upstream"
	// KindLiveness is a run that never completed within the budgets.
	KindLiveness Kind = "liveness"
	// KindBusy is a send attempted while another is in flight for the same conversation.
	KindBusy Kind = "busy"
	// KindCancelled is a send abandoned by its caller.
	KindCancelled Kind = "cancelled"
)

var (
	ErrEmptyMessage     = errors.New("empty or invalid message")
	ErrMessageTooLong   = errors.New("message too long")
	ErrThreadCreation   = errors.New("thread creation failed")
	ErrMessageCreation  = errors.New("message creation failed")
	ErrRunCreation      = errors.New("run creation failed")
	ErrPollExhausted    = errors.New("polling exhausted")
	ErrRetriesExhausted = errors.New("run retries exhausted")
	ErrListMessages     = errors.New("listing messages failed")
	ErrBusy             = errors.New("send already in progress")
	ErrCancelled        = errors.New("send cancelled")
)

const couldNotComplete = "The assistant could not complete your request. Please try again."

// Error is the single failure type returned by Send. Its Error text is safe to
// show to the visitor.
type Error struct {
	Kind    Kind
	Reason  error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Reason}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func validationError(reason error, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

func emptyMessageError() *Error {
	return validationError(ErrEmptyMessage, "Please enter a valid message")
}

func tooLongError(max int) *Error {
	return validationError(ErrMessageTooLong, fmt.Sprintf("Message too long. Maximum %d characters allowed.", max))
}

// upstreamError prefers the vendor's own message over the generic fallback.
func upstreamError(reason error, fallback string, err error) *Error {
	message := assistant.UpstreamMessage(err)
	if message == "" {
		message = fallback
	}
	return &Error{Kind: KindUpstream, Reason: reason, Message: message, Err: err}
}

func livenessError(reason error) *Error {
	return &Error{Kind: KindLiveness, Reason: reason, Message: couldNotComplete}
}

func busyError() *Error {
	return &Error{Kind: KindBusy, Reason: ErrBusy, Message: "A message is already being sent. Please wait for the reply."}
}

func cancelledError(err error) *Error {
	return &Error{Kind: KindCancelled, Reason: ErrCancelled, Message: "The request was cancelled.", Err: err}
}

// KindOf returns the Kind of a Send failure, or "" for other errors.
func KindOf(err error) Kind {
	var convErr *Error
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return ""
}
