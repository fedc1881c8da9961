package conversation

import (
	"fmt"
	"time"

	"github.com/desktopathlete/athlete/pkg/logger"
)

// State is a step of a single send operation
type State int

const (
	StateIdle State = iota
	StateValidating
	StateThreadEnsured
	StateRunPending
	StatePolling
	StateRunDead
	StateFetching
	StateCompleted
	StateValidationFailed
	StateBusy
	StateThreadFailed
	StateRunCreationFailed
	StatePollExhausted
	StateRetriesExhausted
	StateListFailed
	StateCancelled
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateValidating:        "validating",
	StateThreadEnsured:     "thread_ensured",
	StateRunPending:        "run_pending",
	StatePolling:           "polling",
	StateRunDead:           "run_dead",
	StateFetching:          "fetching",
	StateCompleted:         "completed",
	StateValidationFailed:  "validation_failed",
	StateBusy:              "busy",
	StateThreadFailed:      "thread_failed",
	StateRunCreationFailed: "run_creation_failed",
	StatePollExhausted:     "poll_exhausted",
	StateRetriesExhausted:  "retries_exhausted",
	StateListFailed:        "list_failed",
	StateCancelled:         "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Polling -> Polling marks each retrieve attempt.
var transitions = map[State][]State{
	StateIdle:          {StateValidating},
	StateValidating:    {StateThreadEnsured, StateValidationFailed, StateBusy, StateThreadFailed, StateCancelled},
	StateThreadEnsured: {StateRunPending},
	StateRunPending:    {StatePolling, StateRunCreationFailed, StateCancelled},
	StatePolling:       {StatePolling, StateRunDead, StateFetching, StatePollExhausted, StateCancelled},
	StateRunDead:       {StateRunPending, StateRetriesExhausted, StatePollExhausted},
	StateFetching:      {StateCompleted, StateListFailed, StateCancelled},
}

// Transition is reported to observers on every state change
type Transition struct {
	From       State
	To         State
	ThreadID   string
	RunID      string
	Attempt    int
	RunRetries int
	At         time.Time
}

// Observer receives transitions synchronously, in order.
type Observer func(Transition)

type machine struct {
	state      State
	threadID   string
	runID      string
	attempt    int
	runRetries int
	observers  []Observer
	now        func() time.Time
}

func newMachine(observers []Observer) *machine {
	return &machine{state: StateIdle, observers: observers, now: time.Now}
}

func (m *machine) can(next State) bool {
	for _, candidate := range transitions[m.state] {
		if candidate == next {
			return true
		}
	}
	return false
}

// to moves the machine to next and notifies observers. An illegal transition
// is logged and ignored.
func (m *machine) to(next State) {
	if !m.can(next) {
		logger.Error(logger.CONVERSATION, "Illegal transition %s -> %s", m.state, next)
		return
	}

	t := Transition{
		From:       m.state,
		To:         next,
		ThreadID:   m.threadID,
		RunID:      m.runID,
		Attempt:    m.attempt,
		RunRetries: m.runRetries,
		At:         m.now(),
	}
	m.state = next

	for _, observe := range m.observers {
		observe(t)
	}
}
