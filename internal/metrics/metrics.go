// Package metrics instruments the state layer with prometheus collectors.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/five82/ticketbook/internal/result"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	CacheLookups   *prometheus.CounterVec
	RemoteCalls    *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	Rollbacks      *prometheus.CounterVec
	Retries        *prometheus.CounterVec
	BreakerState   *prometheus.GaugeVec
	Online         prometheus.Gauge
}

// New registers the collectors on reg. A nil reg creates unregistered
// collectors, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbook_cache_lookups_total",
			Help: "Fetch actions answered from cache (hit) or sent to the backend (miss).",
		}, []string{"resource", "outcome"}),
		RemoteCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbook_remote_calls_total",
			Help: "Backend calls by operation and error kind.",
		}, []string{"operation", "kind"}),
		RemoteDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticketbook_remote_call_duration_seconds",
			Help:    "Backend call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		Rollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbook_optimistic_rollbacks_total",
			Help: "Optimistic updates reverted by a forced refetch.",
		}, []string{"resource"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbook_retries_total",
			Help: "Retry attempts by outcome.",
		}, []string{"outcome"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ticketbook_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),
		Online: f.NewGauge(prometheus.GaugeOpts{
			Name: "ticketbook_network_online",
			Help: "1 when the backend was reachable at the last probe.",
		}),
	}
}

// CacheHit records a fetch served from cache.
func (m *Metrics) CacheHit(resource string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(resource, "hit").Inc()
}

// CacheMiss records a fetch that went to the backend.
func (m *Metrics) CacheMiss(resource string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(resource, "miss").Inc()
}

// ObserveCall records one backend call. err is nil on success.
func (m *Metrics) ObserveCall(operation string, started time.Time, err *result.AppError) {
	if m == nil {
		return
	}
	kind := "OK"
	if err != nil {
		kind = string(err.Kind)
	}
	m.RemoteCalls.WithLabelValues(operation, kind).Inc()
	m.RemoteDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Rollback records an optimistic change undone by refetch.
func (m *Metrics) Rollback(resource string) {
	if m == nil {
		return
	}
	m.Rollbacks.WithLabelValues(resource).Inc()
}

// Retry records a retry attempt outcome: "success", "failure" or "exhausted".
func (m *Metrics) Retry(outcome string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(outcome).Inc()
}

// SetBreakerState records a circuit breaker transition.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// SetOnline records reachability.
func (m *Metrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	if online {
		m.Online.Set(1)
	} else {
		m.Online.Set(0)
	}
}
