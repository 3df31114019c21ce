package metrics

import "errors"

// MultiSink fans records out to multiple sinks. Every sink sees every
// record; the errors of failing sinks are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOperation forwards the record to all sinks.
func (m *MultiSink) RecordOperation(rec OperationRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordOperation(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordStatusChange forwards status transitions to sinks that record them.
func (m *MultiSink) RecordStatusChange(rec StatusRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(StatusRecorder); ok {
			if err := r.RecordStatusChange(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordCDR forwards charge detail records to sinks that record them.
func (m *MultiSink) RecordCDR(rec CDRRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(CDRRecorder); ok {
			if err := r.RecordCDR(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordQueueDepth forwards the CDR queue depth when supported by the sink.
func (m *MultiSink) RecordQueueDepth(depth int) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(QueueDepthRecorder); ok {
			if err := r.RecordQueueDepth(depth); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
