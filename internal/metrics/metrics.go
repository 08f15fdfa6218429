// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdesk",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "opsdesk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// TransitionsTotal counts lifecycle actions; result is ok, rejected or error
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdesk",
		Name:      "lifecycle_transitions_total",
		Help:      "Status transitions by entity, action and result.",
	}, []string{"entity", "action", "result"})

	AccessDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdesk",
		Name:      "access_denied_total",
		Help:      "Requests rejected by page gating.",
	}, []string{"page"})

	PartialFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdesk",
		Name:      "partial_failures_total",
		Help:      "Secondary writes that failed after the primary write succeeded.",
	}, []string{"operation"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "opsdesk",
		Name:      "idempotent_replays_total",
		Help:      "Mutations answered from the idempotency store.",
	})

	RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "opsdesk",
		Name:      "realtime_subscribers",
		Help:      "Open change-feed streams.",
	})

	RealtimeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdesk",
		Name:      "realtime_events_total",
		Help:      "Change notifications received by table.",
	}, []string{"table"})
)

// ObserveRequest records one finished HTTP request
func ObserveRequest(route, method string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveTransition records the outcome of a lifecycle action
func ObserveTransition(entity, action string, err error, rejected bool) {
	result := "ok"
	switch {
	case rejected:
		result = "rejected"
	case err != nil:
		result = "error"
	}
	TransitionsTotal.WithLabelValues(entity, action, result).Inc()
}
