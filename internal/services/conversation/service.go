package conversation

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/desktopathlete/athlete/internal/assistant"
	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/pkg/logger"
)

// Options bound one send operation. Budgets never carry over between sends.
type Options struct {
	AssistantID      string
	MaxMessageLength int
	PollInterval     time.Duration
	MaxPollAttempts  int
	MaxRunRetries    int
}

func OptionsFromConfig(cfg config.ConversationConfig, assistantID string) Options {
	return Options{
		AssistantID:      assistantID,
		MaxMessageLength: cfg.MaxMessageLength,
		PollInterval:     cfg.PollInterval,
		MaxPollAttempts:  cfg.MaxPollAttempts,
		MaxRunRetries:    cfg.MaxRunRetries,
	}
}

// WaitFunc pauses between polls. It returns early with ctx's error.
type WaitFunc func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type ServiceOption func(*Service)

// WithWaitFunc replaces the timer used between polls
func WithWaitFunc(wait WaitFunc) ServiceOption {
	return func(s *Service) {
		s.wait = wait
	}
}

// Reply is the conversation state after a successful send
type Reply struct {
	ThreadID   string              `json:"thread_id"`
	RunID      string              `json:"run_id"`
	Messages   []assistant.Message `json:"messages"`
	Latest     *assistant.Message  `json:"latest,omitempty"`
	Attempts   int                 `json:"attempts"`
	RunRetries int                 `json:"run_retries"`
}

// Service turns one visitor message into the assistant's reply
type Service struct {
	backend   assistant.Backend
	guard     Guard
	opts      Options
	sanitizer *Sanitizer
	wait      WaitFunc
}

// NewService returns a Service. A nil guard admits one send per key within this process.
func NewService(backend assistant.Backend, guard Guard, opts Options, options ...ServiceOption) *Service {
	if guard == nil {
		guard = NewMemoryGuard()
	}

	s := &Service{
		backend:   backend,
		guard:     guard,
		opts:      opts,
		sanitizer: NewSanitizer(),
		wait:      sleep,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Options returns the budgets the service was built with
func (s *Service) Options() Options {
	return s.opts
}

// Validate sanitizes text and applies the length limit without touching the vendor.
func (s *Service) Validate(text string) (string, error) {
	content := s.sanitizer.Sanitize(text)
	if content == "" {
		return "", emptyMessageError()
	}
	if s.opts.MaxMessageLength > 0 && utf8.RuneCountInString(content) > s.opts.MaxMessageLength {
		return "", tooLongError(s.opts.MaxMessageLength)
	}
	return content, nil
}

// Send posts text to the conversation whose handles live in cache and waits for
// the assistant's reply. key identifies the conversation for the single-flight
// guard. Every failure is a *Error.
func (s *Service) Send(ctx context.Context, key string, cache HandleCache, text string, observers ...Observer) (*Reply, error) {
	m := newMachine(observers)
	m.to(StateValidating)

	content, err := s.Validate(text)
	if err != nil {
		m.to(StateValidationFailed)
		logger.Debug(logger.CONVERSATION, "Rejected message for %s: %v", key, err)
		return nil, err
	}

	release, err := s.guard.TryAcquire(ctx, key)
	if err != nil {
		m.to(StateBusy)
		if !errors.Is(err, ErrBusy) {
			logger.Error(logger.CONVERSATION, "Send guard failed for %s: %v", key, err)
		}
		return nil, busyError()
	}
	defer release()

	return s.send(ctx, m, cache, content)
}

func (s *Service) send(ctx context.Context, m *machine, cache HandleCache, content string) (*Reply, error) {
	handles, err := cache.Load(ctx)
	if err != nil {
		logger.Warn(logger.CONVERSATION, "Failed to load conversation handles, starting a new thread: %v", err)
		handles = Handles{}
	}

	threadID, err := s.ensureThread(ctx, cache, &handles, content)
	if err != nil {
		if ctx.Err() != nil {
			m.to(StateCancelled)
			return nil, cancelledError(ctx.Err())
		}
		m.to(StateThreadFailed)
		return nil, err
	}
	m.threadID = threadID
	m.to(StateThreadEnsured)

	// The previous run belongs to the previous message.
	handles.RunID = ""
	s.save(ctx, cache, handles)

	m.to(StateRunPending)
	runID, err := s.startRun(ctx, m, cache, &handles)
	if err != nil {
		return nil, err
	}

	completed, err := s.poll(ctx, m, cache, &handles, runID)
	if err != nil {
		return nil, err
	}
	if !completed {
		m.to(StatePollExhausted)
		logger.Warn(logger.CONVERSATION, "Run %s on thread %s did not complete after %d attempts", m.runID, threadID, m.attempt)
		return nil, livenessError(ErrPollExhausted)
	}

	m.to(StateFetching)
	messages, err := s.backend.ListMessages(ctx, threadID)
	if err != nil {
		if ctx.Err() != nil {
			m.to(StateCancelled)
			return nil, cancelledError(ctx.Err())
		}
		m.to(StateListFailed)
		return nil, upstreamError(ErrListMessages, "Failed to list messages", err)
	}
	m.to(StateCompleted)

	logger.Info(logger.CONVERSATION, "Run %s on thread %s completed after %d attempts and %d run retries",
		m.runID, threadID, m.attempt, m.runRetries)

	return &Reply{
		ThreadID:   threadID,
		RunID:      m.runID,
		Messages:   messages,
		Latest:     LatestAssistantMessage(messages),
		Attempts:   m.attempt,
		RunRetries: m.runRetries,
	}, nil
}

// ensureThread seeds a new thread with content, or appends content to the
// existing one. A created thread is saved before anything else can fail.
func (s *Service) ensureThread(ctx context.Context, cache HandleCache, handles *Handles, content string) (string, error) {
	if handles.ThreadID != "" {
		if _, err := s.backend.CreateMessage(ctx, handles.ThreadID, content); err != nil {
			return "", upstreamError(ErrMessageCreation, "Failed to send message", err)
		}
		return handles.ThreadID, nil
	}

	thread, err := s.backend.CreateThread(ctx, content)
	if err != nil {
		return "", upstreamError(ErrThreadCreation, "Failed to create thread", err)
	}
	if thread == nil || thread.ID == "" {
		return "", upstreamError(ErrThreadCreation, "Thread creation failed: no thread ID returned", nil)
	}

	handles.ThreadID = thread.ID
	s.save(ctx, cache, *handles)
	logger.Debug(logger.CONVERSATION, "Created thread %s", thread.ID)
	return thread.ID, nil
}

// startRun moves the machine from RunPending to Polling with a fresh run.
func (s *Service) startRun(ctx context.Context, m *machine, cache HandleCache, handles *Handles) (string, error) {
	run, err := s.backend.CreateRun(ctx, handles.ThreadID, s.opts.AssistantID)
	if err == nil && (run == nil || run.ID == "") {
		err = errors.New("no run ID returned")
	}
	if err != nil {
		if ctx.Err() != nil {
			m.to(StateCancelled)
			return "", cancelledError(ctx.Err())
		}
		m.to(StateRunCreationFailed)
		return "", upstreamError(ErrRunCreation, "Failed to create run", err)
	}

	m.runID = run.ID
	handles.RunID = run.ID
	s.save(ctx, cache, *handles)

	m.to(StatePolling)
	return run.ID, nil
}

// poll reports whether the run completed within the attempt budget. Every
// retrieve consumes an attempt, including failed ones. Dead runs are replaced
// until the run-retry budget is spent; replacing a run never resets attempts.
func (s *Service) poll(ctx context.Context, m *machine, cache HandleCache, handles *Handles, runID string) (bool, error) {
	for m.attempt < s.opts.MaxPollAttempts {
		m.attempt++
		m.to(StatePolling)

		run, err := s.backend.RetrieveRun(ctx, handles.ThreadID, runID)
		switch {
		case ctx.Err() != nil:
			m.to(StateCancelled)
			return false, cancelledError(ctx.Err())

		case err != nil || run == nil:
			logger.Debug(logger.CONVERSATION, "Poll %d/%d for run %s failed: %v", m.attempt, s.opts.MaxPollAttempts, runID, err)

		case run.Status.IsSuccess():
			return true, nil

		case run.Status.IsDead():
			m.to(StateRunDead)
			m.runRetries++
			logger.Info(logger.CONVERSATION, "Run %s is %s (%s), replacing it (%d/%d)",
				runID, run.Status, run.LastError, m.runRetries, s.opts.MaxRunRetries)

			if m.runRetries >= s.opts.MaxRunRetries {
				m.to(StateRetriesExhausted)
				return false, livenessError(ErrRetriesExhausted)
			}

			// a replacement nobody polls would be left active on the thread
			if m.attempt >= s.opts.MaxPollAttempts {
				return false, nil
			}

			m.to(StateRunPending)
			runID, err = s.startRun(ctx, m, cache, handles)
			if err != nil {
				return false, err
			}
		}

		if m.attempt < s.opts.MaxPollAttempts {
			if err := s.wait(ctx, s.opts.PollInterval); err != nil {
				m.to(StateCancelled)
				return false, cancelledError(err)
			}
		}
	}
	return false, nil
}

// Reset forgets the conversation so the next send starts a new thread.
func (s *Service) Reset(ctx context.Context, cache HandleCache) error {
	return cache.Clear(ctx)
}

func (s *Service) save(ctx context.Context, cache HandleCache, handles Handles) {
	if err := cache.Save(ctx, handles); err != nil {
		logger.Warn(logger.CONVERSATION, "Failed to save conversation handles: %v", err)
	}
}

// LatestAssistantMessage returns the newest assistant message of an oldest-first list.
func LatestAssistantMessage(messages []assistant.Message) *assistant.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == assistant.RoleAssistant {
			latest := messages[i]
			return &latest
		}
	}
	return nil
}
