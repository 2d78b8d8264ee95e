package session

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/coopt/core/optimizer"
)

// State is the lifecycle position of a session.
type State int

const (
	// StateEmpty means no result is available and nothing is in flight.
	StateEmpty State = iota
	// StatePending means at least one request is in flight.
	StatePending
	// StateReady means a result is available and nothing is in flight.
	StateReady
)

var stateNames = [...]string{"empty", "pending", "ready"}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	State         State               `json:"state"`
	HasResult     bool                `json:"has_result"`
	Loading       bool                `json:"loading"`
	Result        optimizer.Result    `json:"result"`
	Objective     optimizer.Objective `json:"objective,omitempty"`
	RequestID     string              `json:"request_id,omitempty"`
	LastError     string              `json:"last_error,omitempty"`
	LastErrorKind optimizer.ErrorKind `json:"last_error_kind,omitempty"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// View is the read-only side handed to consumers.
type View interface {
	HasResult() bool
	Loading() bool
	CurrentResult() optimizer.Result
	State() State
	Snapshot() Snapshot
}

// Controller is a View that can also be driven.
type Controller interface {
	View
	Optimize(ctx context.Context, o optimizer.Objective) (optimizer.Result, error)
	Clear()
	Subscribe() <-chan Snapshot
	Unsubscribe(<-chan Snapshot)
}

func deriveState(hasResult bool, inflight int) State {
	switch {
	case inflight > 0:
		return StatePending
	case hasResult:
		return StateReady
	default:
		return StateEmpty
	}
}
