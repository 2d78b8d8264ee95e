package monitoring

import (
	"errors"
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	r.CaptureException(nil, nil)
	r.CaptureException(errors.New("boom"), map[string]string{"kind": "network"})
	r.Recover()
	r.Flush(time.Second)

	errs, tags := r.Captured()
	if len(errs) != 1 || errs[0].Error() != "boom" {
		t.Fatalf("unexpected errors %v", errs)
	}
	if tags[0]["kind"] != "network" {
		t.Fatalf("unexpected tags %v", tags)
	}
}

func TestNopMonitor(t *testing.T) {
	var m Monitor = NopMonitor{}
	m.CaptureException(errors.New("ignored"), nil)
	m.Flush(0)
}
