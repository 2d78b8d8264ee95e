package metrics

import "errors"

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOutcome forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordOutcome(ev OutcomeEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordOutcome(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordSessionState forwards to sinks implementing SessionStateRecorder.
func (m *MultiSink) RecordSessionState(ev SessionStateEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SessionStateRecorder); ok {
			if err := rec.RecordSessionState(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
