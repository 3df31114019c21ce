package mqtt

import (
	"sync"
	"time"
)

type recordMonitor struct {
	mu  sync.Mutex
	err error
	tg  map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.tg = tags
}

func (r *recordMonitor) Flush(time.Duration) {}

func (r *recordMonitor) captured() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err != nil
}

func (r *recordMonitor) tags() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tg
}
