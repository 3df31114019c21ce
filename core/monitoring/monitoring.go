// Package monitoring forwards unexpected failures (panicking observers,
// voters or workers) to an error reporting backend.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

type holder struct{ m Monitor }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{m: NopMonitor{}}) }

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current.Store(&holder{m: m})
	}
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	current.Load().m.CaptureException(err, tags)
}

// CapturePanic converts a recovered panic value into an error, reports it
// and returns it so callers can log it.
func CapturePanic(r any, tags map[string]string) error {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}
	CaptureException(err, tags)
	return err
}

// Flush flushes buffered events.
func Flush(d time.Duration) { current.Load().m.Flush(d) }
