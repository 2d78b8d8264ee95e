package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/coopt/core/history"
	"github.com/kilianp07/coopt/core/logger"
	"github.com/kilianp07/coopt/core/metrics"
	"github.com/kilianp07/coopt/core/monitoring"
	"github.com/kilianp07/coopt/core/optimizer"
	"github.com/kilianp07/coopt/internal/eventbus"
)

// historyTimeout bounds journal writes made after a request completes.
const historyTimeout = 5 * time.Second

// Session is the optimization session. The zero value is not usable; call New.
type Session struct {
	client   optimizer.Client
	endpoint string
	log      logger.Logger
	policy   FailurePolicy
	sink     metrics.MetricsSink
	monitor  monitoring.Monitor
	history  history.Store
	bus      *eventbus.TypedBus[Snapshot]
	newID    func() string
	now      func() time.Time

	// stateMu orders state recording; stateSeq is bumped under mu and
	// recordedSeq holds the newest sequence written to the sink.
	stateMu     sync.Mutex
	recordedSeq uint64

	mu        sync.RWMutex
	stateSeq  uint64
	result    optimizer.Result
	inflight  int
	objective optimizer.Objective
	requestID string
	lastErr   error
	updated   time.Time
}

// Option customizes a Session.
type Option func(*Session)

// WithFailurePolicy sets what failed requests do to the stored result.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithMetrics records outcomes and readiness changes on sink.
func WithMetrics(sink metrics.MetricsSink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithMonitor reports failed requests to m.
func WithMonitor(m monitoring.Monitor) Option {
	return func(s *Session) {
		if m != nil {
			s.monitor = m
		}
	}
}

// WithHistory journals every outcome to store.
func WithHistory(store history.Store) Option {
	return func(s *Session) { s.history = store }
}

// WithIDGenerator replaces the request id generator.
func WithIDGenerator(f func() string) Option {
	return func(s *Session) { s.newID = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates an empty session fetching results through client. endpoint
// names the descriptor in logs, metrics and the journal.
func New(client optimizer.Client, endpoint string, log logger.Logger, opts ...Option) *Session {
	s := &Session{
		client:   client,
		endpoint: endpoint,
		log:      log,
		policy:   FailureKeep,
		sink:     metrics.NopSink{},
		monitor:  monitoring.NopMonitor{},
		bus:      eventbus.NewRetained[Snapshot](),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mu.Lock()
	s.updated = s.now()
	s.bus.Publish(s.snapshotLocked())
	s.mu.Unlock()
	return s
}

// Clear resets the result and readiness. Requests in flight are not
// cancelled and will still store their result when they complete.
func (s *Session) Clear() {
	s.mu.Lock()
	s.result = optimizer.Result{}
	s.objective = ""
	s.requestID = ""
	s.lastErr = nil
	s.updated = s.now()
	snap, inflight, seq := s.publishLocked()
	s.mu.Unlock()

	s.log.Debugf("session cleared")
	s.recordState(snap, inflight, seq)
}

// Optimize asks the optimizer for a result under objective o and blocks
// until the round trip completes. On success the body becomes the current
// result. On failure the error is returned and the failure policy applies.
func (s *Session) Optimize(ctx context.Context, o optimizer.Objective) (optimizer.Result, error) {
	id := s.newID()
	s.log.Infow("optimize requested", map[string]any{
		"objective":  o.String(),
		"request_id": id,
		"endpoint":   s.endpoint,
	})

	s.mu.Lock()
	s.inflight++
	s.updated = s.now()
	snap, inflight, seq := s.publishLocked()
	s.mu.Unlock()
	s.recordState(snap, inflight, seq)

	start := s.now()
	res, err := s.client.Fetch(ctx, o)
	latency := s.now().Sub(start)

	s.mu.Lock()
	s.inflight--
	if err == nil {
		s.result = res
		s.objective = o
		s.requestID = id
		s.lastErr = nil
	} else {
		s.lastErr = err
		if s.policy == FailureClear {
			s.result = optimizer.Result{}
			s.objective = ""
			s.requestID = ""
		}
	}
	s.updated = s.now()
	snap, inflight, seq = s.publishLocked()
	s.mu.Unlock()

	s.recordOutcome(ctx, id, o, start, latency, res, err)
	s.recordState(snap, inflight, seq)

	if err != nil {
		s.log.Errorf("optimize %s (%s) failed: %v", id, o, err)
		return optimizer.Result{}, err
	}
	s.log.Debugw("optimize result received", map[string]any{"request_id": id, "result": res.String()})
	return res, nil
}

func (s *Session) recordOutcome(ctx context.Context, id string, o optimizer.Objective, start time.Time, latency time.Duration, res optimizer.Result, err error) {
	ev := metrics.OutcomeEvent{
		RequestID: id,
		Objective: o,
		Endpoint:  s.endpoint,
		Outcome:   metrics.OutcomeOf(err),
		Latency:   latency,
		Time:      start,
	}
	if err != nil {
		var re *optimizer.RequestError
		if errors.As(err, &re) {
			ev.StatusCode = re.StatusCode
		}
		s.monitor.CaptureException(err, map[string]string{
			"objective": o.String(),
			"endpoint":  s.endpoint,
			"kind":      string(ev.Outcome),
		})
	}
	if rerr := s.sink.RecordOutcome(ev); rerr != nil {
		s.log.Warnf("record outcome: %v", rerr)
	}
	if s.history == nil {
		return
	}
	rec := history.Record{
		Timestamp:  start,
		RequestID:  id,
		Objective:  o,
		Endpoint:   s.endpoint,
		Outcome:    ev.Outcome,
		StatusCode: ev.StatusCode,
		LatencyMS:  float64(latency.Microseconds()) / 1000,
		Result:     res,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if herr := s.history.Append(hctx, rec); herr != nil {
		s.log.Warnf("journal outcome: %v", herr)
	}
}

// publishLocked sends the current snapshot to subscribers and numbers the
// change. Callers hold mu.
func (s *Session) publishLocked() (Snapshot, int, uint64) {
	s.stateSeq++
	snap := s.snapshotLocked()
	s.bus.Publish(snap)
	return snap, s.inflight, s.stateSeq
}

// recordState writes the state change numbered seq to the sink unless a
// newer change has already been written.
func (s *Session) recordState(snap Snapshot, inflight int, seq uint64) {
	rec, ok := s.sink.(metrics.SessionStateRecorder)
	if !ok {
		return
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if seq <= s.recordedSeq {
		return
	}
	s.recordedSeq = seq
	if err := rec.RecordSessionState(metrics.SessionStateEvent{Ready: snap.HasResult, InFlight: inflight, Time: snap.UpdatedAt}); err != nil {
		s.log.Warnf("record session state: %v", err)
	}
}

// Info returns the read-only view of the session.
func (s *Session) Info() View { return s }

// HasResult reports whether a result is available.
func (s *Session) HasResult() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.result.IsEmpty()
}

// Loading reports whether at least one request is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// CurrentResult returns the stored result, empty when none is available.
func (s *Session) CurrentResult() optimizer.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// State returns the derived lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deriveState(!s.result.IsEmpty(), s.inflight)
}

// Snapshot returns a consistent copy of the state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     deriveState(!s.result.IsEmpty(), s.inflight),
		HasResult: !s.result.IsEmpty(),
		Loading:   s.inflight > 0,
		Result:    s.result,
		Objective: s.objective,
		RequestID: s.requestID,
		UpdatedAt: s.updated,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
		snap.LastErrorKind = optimizer.KindOf(s.lastErr)
	}
	return snap
}

// Subscribe returns a channel receiving the current snapshot followed by one
// snapshot per state change. Slow subscribers miss intermediate snapshots.
func (s *Session) Subscribe() <-chan Snapshot { return s.bus.Subscribe() }

// Unsubscribe stops delivery to ch and closes it.
func (s *Session) Unsubscribe(ch <-chan Snapshot) { s.bus.Unsubscribe(ch) }

// Close closes every subscription.
func (s *Session) Close() { s.bus.Close() }
