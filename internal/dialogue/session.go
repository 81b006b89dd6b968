package dialogue

import (
	"time"

	"support-assistant/internal/intent"
)

type State string

const (
	// StateAwaitingInput is the only resting state of a live session. A turn
	// passes through responding inside Manager.Handle and returns here.
	StateAwaitingInput State = "awaiting_input"
	StateTerminated    State = "terminated"
)

// Session is the per-conversation memory. It is a value: Manager.Handle
// takes the current session and returns the next one.
type Session struct {
	ID   string
	Name string
	// LastIntent is the label handled on the previous turn, empty before
	// the first turn.
	LastIntent intent.Label
	State      State
	Turns      int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewSession(id, name string) Session {
	now := time.Now()
	return Session{
		ID:        id,
		Name:      name,
		State:     StateAwaitingInput,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s Session) Terminated() bool {
	return s.State == StateTerminated
}
