package monitoring

import (
	"errors"
	"testing"
	"time"
)

type recordMonitor struct {
	errs []error
	tags []map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recordMonitor) Flush(time.Duration) {}

func TestCapturePanic(t *testing.T) {
	rec := &recordMonitor{}
	Init(rec)
	defer Init(NopMonitor{})

	err := CapturePanic("boom", map[string]string{"observer": "audit"})
	if err == nil || err.Error() != "panic: boom" {
		t.Fatalf("unexpected error %v", err)
	}
	sentinel := errors.New("typed")
	if got := CapturePanic(sentinel, nil); !errors.Is(got, sentinel) {
		t.Fatalf("expected sentinel, got %v", got)
	}
	if len(rec.errs) != 2 || rec.tags[0]["observer"] != "audit" {
		t.Fatalf("unexpected captures %#v", rec)
	}
}

func TestInitNilKeepsCurrent(t *testing.T) {
	rec := &recordMonitor{}
	Init(rec)
	defer Init(NopMonitor{})
	Init(nil)
	CaptureException(errors.New("x"), nil)
	CaptureException(nil, nil)
	if len(rec.errs) != 1 {
		t.Fatalf("expected 1 capture got %d", len(rec.errs))
	}
}
