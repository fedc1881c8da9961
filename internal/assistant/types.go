package assistant

import "time"

// Role identifies the author of a thread message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// RunStatus is the vendor-reported state of a run
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusExpired        RunStatus = "expired"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// IsSuccess reports whether the run produced a reply.
func (s RunStatus) IsSuccess() bool {
	return s == RunStatusCompleted
}

// IsDead reports whether the run ended without a reply and must be replaced.
func (s RunStatus) IsDead() bool {
	switch s {
	case RunStatusFailed, RunStatusExpired, RunStatusCancelled, RunStatusIncomplete:
		return true
	}
	return false
}

// IsTerminal reports whether the run will never change status again.
func (s RunStatus) IsTerminal() bool {
	return s.IsSuccess() || s.IsDead()
}

// Thread is a vendor-side conversation
type Thread struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is one assistant turn executing against a thread
type Run struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id,omitempty"`
	Status      RunStatus `json:"status"`
	LastError   string    `json:"last_error,omitempty"`
}

// Message is a single thread entry with its content flattened to text
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// UserMessage represents an incoming websocket message from the user
type UserMessage struct {
	Content   string `json:"content"`
	MessageID string `json:"message_id,omitempty"`
}

// AssistantResponse represents a websocket frame sent back to the user
type AssistantResponse struct {
	RequestID string    `json:"request_id"`
	MessageID string    `json:"message_id,omitempty"`
	Content   string    `json:"content"`
	Status    string    `json:"status"` // "streaming", "complete", or "error"
	State     string    `json:"state,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

// ResponseStatus defines the possible states of an assistant response
const (
	StatusStreaming = "streaming"
	StatusComplete  = "complete"
	StatusError     = "error"
)
