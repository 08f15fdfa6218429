package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTransition(t *testing.T) {
	before := testutil.ToFloat64(TransitionsTotal.WithLabelValues("job", "start", "rejected"))
	ObserveTransition("job", "start", errors.New("x"), true)
	after := testutil.ToFloat64(TransitionsTotal.WithLabelValues("job", "start", "rejected"))
	if after-before != 1 {
		t.Errorf("rejected counter moved by %v", after-before)
	}

	before = testutil.ToFloat64(TransitionsTotal.WithLabelValues("job", "start", "error"))
	ObserveTransition("job", "start", errors.New("db down"), false)
	if got := testutil.ToFloat64(TransitionsTotal.WithLabelValues("job", "start", "error")) - before; got != 1 {
		t.Errorf("error counter moved by %v", got)
	}
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/tasks", "GET", "200"))
	ObserveRequest("/v1/tasks", "GET", 200, 5*time.Millisecond)
	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/tasks", "GET", "200")) - before; got != 1 {
		t.Errorf("request counter moved by %v", got)
	}
}
