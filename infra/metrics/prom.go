package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/coopt/core/metrics"
)

// PromSink records optimize outcomes in Prometheus metrics.
type PromSink struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	ready    prometheus.Gauge
	inflight prometheus.Gauge
}

// NewPromSink registers session metrics on the default Prometheus registerer.
// The /metrics server is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimize_requests_total",
		Help: "Total number of optimize requests by outcome",
	}, []string{"objective", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimize_latency_seconds",
		Help:    "Round trip time of optimize requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"objective"})
	ready := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_ready",
		Help: "1 when the session holds a result",
	})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_inflight",
		Help: "Number of optimize requests in flight",
	})

	if err := reg.Register(requests); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			requests = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(ready); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			ready = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(inflight); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			inflight = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{requests: requests, latency: latency, ready: ready, inflight: inflight}, nil
}

// RecordOutcome counts the request and observes its latency.
func (s *PromSink) RecordOutcome(ev coremetrics.OutcomeEvent) error {
	obj := ev.Objective.String()
	s.requests.WithLabelValues(obj, string(ev.Outcome)).Inc()
	s.latency.WithLabelValues(obj).Observe(ev.Latency.Seconds())
	return nil
}

// RecordSessionState sets the readiness and in-flight gauges.
func (s *PromSink) RecordSessionState(ev coremetrics.SessionStateEvent) error {
	if ev.Ready {
		s.ready.Set(1)
	} else {
		s.ready.Set(0)
	}
	s.inflight.Set(float64(ev.InFlight))
	return nil
}
