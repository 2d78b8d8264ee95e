package metrics

import (
	"time"

	"github.com/kilianp07/coopt/core/optimizer"
)

// Outcome labels how an optimize request ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeNetwork   Outcome = Outcome(optimizer.KindNetwork)
	OutcomeStatus    Outcome = Outcome(optimizer.KindStatus)
	OutcomeMalformed Outcome = Outcome(optimizer.KindMalformed)
)

// OutcomeOf maps a request error to its outcome label.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if k := optimizer.KindOf(err); k != "" {
		return Outcome(k)
	}
	return OutcomeNetwork
}

// OutcomeEvent describes one completed optimize request.
type OutcomeEvent struct {
	RequestID  string
	Objective  optimizer.Objective
	Endpoint   string
	Outcome    Outcome
	StatusCode int
	Latency    time.Duration
	Time       time.Time
}

// MetricsSink records optimize outcomes.
type MetricsSink interface {
	RecordOutcome(ev OutcomeEvent) error
}

// SessionStateEvent is a point-in-time view of the session flags.
type SessionStateEvent struct {
	Ready    bool
	InFlight int
	Time     time.Time
}

// SessionStateRecorder is implemented by sinks tracking readiness.
type SessionStateRecorder interface {
	RecordSessionState(ev SessionStateEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordOutcome(OutcomeEvent) error           { return nil }
func (NopSink) RecordSessionState(SessionStateEvent) error { return nil }
