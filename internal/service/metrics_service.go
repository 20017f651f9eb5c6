package service

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors for the API: HTTP traffic plus
// the custody and decision counters the workflow emits.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	claimsGranted  prometheus.Counter
	claimConflicts prometheus.Counter
	decisions      *prometheus.CounterVec
	ledgerDrops    prometheus.Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radicados",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "radicados",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		claimsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radicados",
			Subsystem: "workflow",
			Name:      "claims_granted_total",
			Help:      "Custody claims granted, idempotent re-claims included.",
		}),
		claimConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radicados",
			Subsystem: "workflow",
			Name:      "claim_conflicts_total",
			Help:      "Custody claims rejected because another reviewer holds the document.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radicados",
			Subsystem: "workflow",
			Name:      "decisions_total",
			Help:      "Recorded decisions by outcome.",
		}, []string{"outcome"}),
		ledgerDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radicados",
			Subsystem: "ledger",
			Name:      "dropped_entries_total",
			Help:      "Access ledger entries dropped after enqueue or write failure.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.claimsGranted,
		m.claimConflicts,
		m.decisions,
		m.ledgerDrops,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one completed HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ClaimGranted counts a successful custody claim.
func (m *Metrics) ClaimGranted() {
	m.claimsGranted.Inc()
}

// ClaimConflict counts a claim rejected by the single-holder rule.
func (m *Metrics) ClaimConflict() {
	m.claimConflicts.Inc()
}

// DecisionRecorded counts a decision by outcome.
func (m *Metrics) DecisionRecorded(outcome string) {
	m.decisions.WithLabelValues(outcome).Inc()
}

// LedgerDropped counts a lost best-effort ledger entry.
func (m *Metrics) LedgerDropped() {
	m.ledgerDrops.Inc()
}
