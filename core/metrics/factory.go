package metrics

import (
	"fmt"

	"github.com/kilianp07/coopt/core/factory"
)

// sinkRegistry holds the outcome sink factories; infra/metrics registers
// "nop", "prometheus" and "influx" from its init.
var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes an outcome sink available under name in the
// metrics.sinks list.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered outcome sink names.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink builds the outcome sinks listed under metrics.sinks. An
// empty list yields NopSink and several sinks are fanned out through a
// MultiSink, which also forwards session state to the sinks that record it.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	sinks := make([]MetricsSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, fmt.Errorf("metrics.sinks[%d] (%s): %w", i, c.Type, err)
		}
		sinks[i] = s
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
