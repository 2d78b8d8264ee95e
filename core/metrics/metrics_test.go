package metrics_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/coopt/core/factory"
	metrics "github.com/kilianp07/coopt/core/metrics"
	"github.com/kilianp07/coopt/core/optimizer"
	_ "github.com/kilianp07/coopt/infra/metrics"
)

type recSink struct {
	outcomes []metrics.OutcomeEvent
	states   []metrics.SessionStateEvent
	err      error
}

func (r *recSink) RecordOutcome(ev metrics.OutcomeEvent) error {
	r.outcomes = append(r.outcomes, ev)
	return r.err
}

func (r *recSink) RecordSessionState(ev metrics.SessionStateEvent) error {
	r.states = append(r.states, ev)
	return nil
}

type outcomeOnly struct{ n int }

func (o *outcomeOnly) RecordOutcome(metrics.OutcomeEvent) error { o.n++; return nil }

func TestNewMetricsSink(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "expected MultiSink, got %T", s)
	assert.Len(t, m.Sinks, 2)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "statsd"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.sinks[1] (statsd)")
	assert.Contains(t, metrics.SinkTypes(), "nop")
}

func TestConfigDecodeJSON(t *testing.T) {
	var cfg metrics.Config
	require.NoError(t, json.Unmarshal([]byte(`{"sinks":[{"type":"nop"},{"type":"prometheus"}],"prometheus_addr":":2112"}`), &cfg))
	assert.True(t, cfg.PrometheusEnabled())
	assert.Equal(t, ":2112", cfg.PrometheusAddr)
}

func TestMultiSinkForwards(t *testing.T) {
	a := &recSink{}
	b := &recSink{err: errors.New("down")}
	c := &outcomeOnly{}
	m := metrics.NewMultiSink(a, b, c)

	err := m.RecordOutcome(metrics.OutcomeEvent{Objective: optimizer.ObjectiveHeavy, Outcome: metrics.OutcomeSuccess})
	assert.Error(t, err)
	assert.Len(t, a.outcomes, 1)
	assert.Len(t, b.outcomes, 1)
	assert.Equal(t, 1, c.n)

	require.NoError(t, m.RecordSessionState(metrics.SessionStateEvent{Ready: true}))
	assert.Len(t, a.states, 1)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, metrics.OutcomeSuccess, metrics.OutcomeOf(nil))
	assert.Equal(t, metrics.OutcomeMalformed, metrics.OutcomeOf(&optimizer.RequestError{Kind: optimizer.KindMalformed}))
	assert.Equal(t, metrics.OutcomeNetwork, metrics.OutcomeOf(errors.New("x")))
}
