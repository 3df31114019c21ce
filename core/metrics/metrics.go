package metrics

import (
	"time"

	"github.com/kilianp07/roamnet/core/model"
)

// OperationRecord is the outcome of one dispatcher call.
type OperationRecord struct {
	Network    model.NetworkID
	Operation  string
	Operator   model.OperatorID
	Target     model.EntityRef
	Result     model.ResultCode
	AnsweredBy model.Owner
	Attempts   int
	Elapsed    time.Duration
	Time       time.Time
}

// MetricsSink records dispatcher operation outcomes.
type MetricsSink interface {
	RecordOperation(rec OperationRecord) error
}

// StatusKind distinguishes the two status pipelines.
type StatusKind string

const (
	KindStatus      StatusKind = "status"
	KindAdminStatus StatusKind = "admin_status"
)

// StatusRecord is a status or admin status transition of an entity.
type StatusRecord struct {
	Network model.NetworkID
	Entity  model.EntityRef
	Kind    StatusKind
	Old     string
	New     string
	Time    time.Time
}

// StatusRecorder records status transitions.
type StatusRecorder interface {
	RecordStatusChange(rec StatusRecord) error
}

// CDRRecord describes a charge detail record after distribution.
type CDRRecord struct {
	Network model.NetworkID
	CDR     model.ChargeDetailRecord
	Result  model.ResultCode
	Queued  bool
	Failed  bool
	Time    time.Time
}

// CDRRecorder records distributed charge detail records.
type CDRRecorder interface {
	RecordCDR(rec CDRRecord) error
}

// QueueDepthRecorder records the number of pending queued CDRs.
type QueueDepthRecorder interface {
	RecordQueueDepth(depth int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordOperation(OperationRecord) error { return nil }
func (NopSink) RecordStatusChange(StatusRecord) error { return nil }
func (NopSink) RecordCDR(CDRRecord) error             { return nil }
func (NopSink) RecordQueueDepth(int) error            { return nil }
