package monitoring

import (
	"sync"
	"time"
)

// Monitor reports errors to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor discards everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

// Recorder keeps captured errors in memory. Tests use it to assert on
// reported failures.
type Recorder struct {
	mu     sync.Mutex
	errors []error
	tags   []map[string]string
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errors = append(r.errors, err)
	r.tags = append(r.tags, tags)
	r.mu.Unlock()
}

// Captured returns copies of the recorded errors and their tags.
func (r *Recorder) Captured() ([]error, []map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errors...), append([]map[string]string(nil), r.tags...)
}

func (r *Recorder) Recover()            {}
func (r *Recorder) Flush(time.Duration) {}
