// Package assistanttest provides an in-memory assistant.Backend for tests.
package assistanttest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desktopathlete/athlete/internal/assistant"
)

// Backend behaves like the hosted assistant: threads hold messages, runs move
// through the scripted statuses, and a completed run appends Reply.
type Backend struct {
	mu sync.Mutex

	// Statuses are returned by successive RetrieveRun calls. The last one
	// repeats; an empty script completes every run on its first poll.
	Statuses []assistant.RunStatus
	// Reply is the assistant message a completed run appends.
	Reply string
	// Errors fails the named operation ("create_thread", "create_message",
	// "create_run", "retrieve_run", "list_messages").
	Errors map[string]error

	threads   map[string][]assistant.Message
	runs      map[string]*assistant.Run
	calls     map[string]int
	retrieves int
	seq       int
}

func NewBackend() *Backend {
	return &Backend{
		Reply:   "...",
		Errors:  map[string]error{},
		threads: map[string][]assistant.Message{},
		runs:    map[string]*assistant.Run{},
		calls:   map[string]int{},
	}
}

// Calls returns how many times op was invoked
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Messages returns a copy of a thread's messages
func (b *Backend) Messages(threadID string) []assistant.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]assistant.Message(nil), b.threads[threadID]...)
}

func (b *Backend) begin(op string) error {
	b.calls[op]++
	return b.Errors[op]
}

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s_%d", prefix, b.seq)
}

func notFound(op, what string) error {
	return &assistant.UpstreamError{Op: op, StatusCode: http.StatusNotFound, Message: "No " + what + " found"}
}

func (b *Backend) message(role assistant.Role, content string) assistant.Message {
	return assistant.Message{ID: b.nextID("msg"), Role: role, Content: content, CreatedAt: time.Now().UTC()}
}

func (b *Backend) CreateThread(_ context.Context, seed string) (*assistant.Thread, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("create_thread"); err != nil {
		return nil, err
	}

	id := b.nextID("thread")
	b.threads[id] = []assistant.Message{b.message(assistant.RoleUser, seed)}
	return &assistant.Thread{ID: id, CreatedAt: time.Now().UTC()}, nil
}

func (b *Backend) CreateMessage(_ context.Context, threadID, content string) (*assistant.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("create_message"); err != nil {
		return nil, err
	}

	if _, ok := b.threads[threadID]; !ok {
		return nil, notFound("create message", "thread")
	}
	msg := b.message(assistant.RoleUser, content)
	b.threads[threadID] = append(b.threads[threadID], msg)
	return &msg, nil
}

func (b *Backend) CreateRun(_ context.Context, threadID, assistantID string) (*assistant.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("create_run"); err != nil {
		return nil, err
	}

	if _, ok := b.threads[threadID]; !ok {
		return nil, notFound("create run", "thread")
	}
	for _, run := range b.runs {
		if run.ThreadID == threadID && !run.Status.IsTerminal() {
			copied := *run
			return &copied, nil
		}
	}

	run := &assistant.Run{ID: b.nextID("run"), ThreadID: threadID, AssistantID: assistantID, Status: assistant.RunStatusQueued}
	b.runs[run.ID] = run
	copied := *run
	return &copied, nil
}

func (b *Backend) RetrieveRun(_ context.Context, threadID, runID string) (*assistant.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("retrieve_run"); err != nil {
		return nil, err
	}

	run, ok := b.runs[runID]
	if !ok || run.ThreadID != threadID {
		return nil, &assistant.UpstreamError{Op: "retrieve run", StatusCode: http.StatusNotFound, Message: "No run found with the specified ID"}
	}

	if !run.Status.IsTerminal() {
		status := assistant.RunStatusCompleted
		if len(b.Statuses) > 0 {
			idx := b.retrieves
			if idx >= len(b.Statuses) {
				idx = len(b.Statuses) - 1
			}
			status = b.Statuses[idx]
		}
		b.retrieves++

		run.Status = status
		if status.IsSuccess() {
			b.threads[threadID] = append(b.threads[threadID], b.message(assistant.RoleAssistant, b.Reply))
		}
	}

	copied := *run
	return &copied, nil
}

func (b *Backend) ListMessages(_ context.Context, threadID string) ([]assistant.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("list_messages"); err != nil {
		return nil, err
	}

	messages, ok := b.threads[threadID]
	if !ok {
		return nil, notFound("list messages", "thread")
	}
	return append([]assistant.Message(nil), messages...), nil
}
