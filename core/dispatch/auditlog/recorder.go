package auditlog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/logger"
)

// Recorder turns post-phase operation events into records. Observe is
// meant to be registered as a dispatcher operation observer; it never
// blocks, and records are written by Run.
type Recorder struct {
	store   Store
	log     logger.Logger
	queue   chan Record
	dropped atomic.Uint64
}

// NewRecorder returns a recorder buffering up to size records.
func NewRecorder(store Store, size int, log logger.Logger) *Recorder {
	if size <= 0 {
		size = 1024
	}
	return &Recorder{store: store, log: logger.OrNop(log), queue: make(chan Record, size)}
}

// Observe queues ev if it closes an operation.
func (r *Recorder) Observe(ev events.OperationEvent) {
	if ev.Phase != events.PhasePost {
		return
	}
	select {
	case r.queue <- FromEvent(ev):
	default:
		if r.dropped.Add(1) == 1 {
			r.log.Warnf("auditlog: buffer full, dropping records")
		}
	}
}

// Dropped returns the number of records lost to a full buffer.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Run writes queued records until ctx is cancelled, then flushes what is
// left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case rec := <-r.queue:
			r.write(ctx, rec)
		case <-ctx.Done():
			r.flush()
			return
		}
	}
}

func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-r.queue:
			r.write(ctx, rec)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, rec Record) {
	if err := r.store.Append(ctx, rec); err != nil {
		r.log.Errorf("auditlog: append %s %s: %v", rec.Operation, rec.CallID, err)
	}
}
