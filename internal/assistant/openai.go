package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/desktopathlete/athlete/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

const (
	runListLimit     = 20
	messageListLimit = 100
)

// OpenAIBackend reaches the hosted assistant through the OpenAI Assistants API
type OpenAIBackend struct {
	client *openai.Client
}

func NewOpenAIBackend(client *openai.Client) *OpenAIBackend {
	return &OpenAIBackend{client: client}
}

func (b *OpenAIBackend) CreateThread(ctx context.Context, seed string) (*Thread, error) {
	thread, err := b.client.CreateThread(ctx, openai.ThreadRequest{
		Messages: []openai.ThreadMessage{{
			Role:    openai.ThreadMessageRoleUser,
			Content: seed,
		}},
	})
	if err != nil {
		return nil, upstreamError("create thread", err)
	}

	logger.Debug(logger.SERVICE, "Created thread %s", thread.ID)
	return &Thread{
		ID:        thread.ID,
		CreatedAt: time.Unix(thread.CreatedAt, 0).UTC(),
	}, nil
}

func (b *OpenAIBackend) CreateMessage(ctx context.Context, threadID, content string) (*Message, error) {
	msg, err := b.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: content,
	})
	if err != nil {
		return nil, upstreamError("create message", err)
	}

	converted := convertMessage(msg)
	return &converted, nil
}

// CreateRun returns the newest unfinished run on the thread when one exists, so
// concurrent callers collapse onto a single in-flight run.
func (b *OpenAIBackend) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	limit := runListLimit
	runs, err := b.client.ListRuns(ctx, threadID, openai.Pagination{Limit: &limit})
	if err != nil {
		return nil, upstreamError("list runs", err)
	}

	for _, run := range runs.Runs {
		if !RunStatus(run.Status).IsTerminal() {
			logger.Debug(logger.SERVICE, "Reusing active run %s (%s) on thread %s", run.ID, run.Status, threadID)
			return convertRun(run), nil
		}
	}

	run, err := b.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return nil, upstreamError("create run", err)
	}

	logger.Debug(logger.SERVICE, "Created run %s on thread %s", run.ID, threadID)
	return convertRun(run), nil
}

func (b *OpenAIBackend) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run, err := b.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		upstream := upstreamError("retrieve run", err)
		if upstream.NotFound() {
			upstream.Message = "No run found with the specified ID"
		}
		return nil, upstream
	}
	return convertRun(run), nil
}

func (b *OpenAIBackend) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	limit := messageListLimit
	order := "asc"

	list, err := b.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, upstreamError("list messages", err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, msg := range list.Messages {
		messages = append(messages, convertMessage(msg))
	}
	return messages, nil
}

func convertRun(run openai.Run) *Run {
	converted := &Run{
		ID:          run.ID,
		ThreadID:    run.ThreadID,
		AssistantID: run.AssistantID,
		Status:      RunStatus(run.Status),
	}
	if run.LastError != nil {
		converted.LastError = run.LastError.Message
	}
	return converted
}

func convertMessage(msg openai.Message) Message {
	return Message{
		ID:        msg.ID,
		Role:      Role(msg.Role),
		Content:   FlattenContent(msg.Content),
		CreatedAt: time.Unix(int64(msg.CreatedAt), 0).UTC(),
	}
}

// FlattenContent joins the text parts of a structured message. Image parts are
// kept as placeholders so the reader knows something was attached.
func FlattenContent(parts []openai.MessageContent) string {
	var texts []string
	for _, part := range parts {
		switch {
		case part.Text != nil:
			texts = append(texts, part.Text.Value)
		case part.ImageFile != nil:
			texts = append(texts, "[image:"+part.ImageFile.FileID+"]")
		}
	}
	return strings.Join(texts, "\n\n")
}

func upstreamError(op string, err error) *UpstreamError {
	upstream := &UpstreamError{Op: op, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		upstream.StatusCode = apiErr.HTTPStatusCode
		upstream.Message = apiErr.Message
	case errors.As(err, &reqErr):
		upstream.StatusCode = reqErr.HTTPStatusCode
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		upstream.StatusCode = http.StatusGatewayTimeout
	}

	logger.Warn(logger.SERVICE, "OpenAI %s failed: %v", op, err)
	return upstream
}
