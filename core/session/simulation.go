package session

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/coopt/core/logger"
	"github.com/kilianp07/coopt/core/optimizer"
	"github.com/kilianp07/coopt/internal/eventbus"
)

// DefaultSimulatedDelay is how long a simulated optimization stays loading.
const DefaultSimulatedDelay = 5 * time.Second

// AfterFunc schedules f to run once d has elapsed.
type AfterFunc func(d time.Duration, f func())

func realAfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Simulation only toggles a loading flag. It never holds a result.
type Simulation struct {
	delay     time.Duration
	afterFunc AfterFunc
	log       logger.Logger
	bus       *eventbus.TypedBus[Snapshot]
	now       func() time.Time

	mu      sync.RWMutex
	loading bool
	updated time.Time
}

// SimulationOption customizes a Simulation.
type SimulationOption func(*Simulation)

// WithAfterFunc replaces the timer used to end a simulated run.
func WithAfterFunc(f AfterFunc) SimulationOption {
	return func(s *Simulation) { s.afterFunc = f }
}

// NewSimulation creates an idle simulation. A non-positive delay selects
// DefaultSimulatedDelay.
func NewSimulation(delay time.Duration, log logger.Logger, opts ...SimulationOption) *Simulation {
	if delay <= 0 {
		delay = DefaultSimulatedDelay
	}
	s := &Simulation{
		delay:     delay,
		afterFunc: realAfterFunc,
		log:       log,
		bus:       eventbus.NewRetained[Snapshot](),
		now:       time.Now,
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

// Start raises the loading flag and schedules it to drop after the delay.
// Each call has its own timer and none is ever cancelled. The returned
// channel is closed when this call's timer fires.
func (s *Simulation) Start() <-chan struct{} {
	s.set(true)
	s.log.Infof("simulated optimization started, done in %s", s.delay)
	done := make(chan struct{})
	s.afterFunc(s.delay, func() {
		s.set(false)
		close(done)
	})
	return done
}

// Optimize ignores the objective, starts a run and waits for it. A done
// context stops the wait but not the timer.
func (s *Simulation) Optimize(ctx context.Context, _ optimizer.Objective) (optimizer.Result, error) {
	select {
	case <-s.Start():
		return optimizer.Result{}, nil
	case <-ctx.Done():
		return optimizer.Result{}, ctx.Err()
	}
}

// Clear has nothing to reset; it republishes the current snapshot.
func (s *Simulation) Clear() {
	s.mu.Lock()
	s.updated = s.now()
	s.bus.Publish(s.snapshotLocked())
	s.mu.Unlock()
}

func (s *Simulation) set(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.updated = s.now()
	s.bus.Publish(s.snapshotLocked())
	s.mu.Unlock()
}

func (s *Simulation) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Simulation) HasResult() bool                 { return false }
func (s *Simulation) CurrentResult() optimizer.Result { return optimizer.Result{} }

func (s *Simulation) State() State {
	if s.Loading() {
		return StatePending
	}
	return StateEmpty
}

func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Simulation) snapshotLocked() Snapshot {
	st := StateEmpty
	if s.loading {
		st = StatePending
	}
	return Snapshot{State: st, Loading: s.loading, UpdatedAt: s.updated}
}

func (s *Simulation) Subscribe() <-chan Snapshot     { return s.bus.Subscribe() }
func (s *Simulation) Unsubscribe(ch <-chan Snapshot) { s.bus.Unsubscribe(ch) }
func (s *Simulation) Close()                         { s.bus.Close() }
