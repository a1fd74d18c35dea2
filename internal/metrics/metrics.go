// Package metrics holds the client-side counters of steelpos.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "steelpos"

// Cache lookup results.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheShared = "shared"
)

type Metrics struct {
	registry *prometheus.Registry

	APIRequests   *prometheus.CounterVec
	TokenRefresh  *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
	Invalidations prometheus.Counter
	Mutations     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Backend API calls by method and response status.",
		}, []string{"method", "status"}),
		TokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "token_refresh_total",
			Help:      "Silent reauthorization attempts by outcome.",
		}, []string{"result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by result.",
		}, []string{"result"}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "invalidated_entries_total",
			Help:      "Cache entries marked stale by mutations.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "mutations_total",
			Help:      "Mutations by outcome.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.APIRequests, m.TokenRefresh, m.CacheLookups, m.Invalidations, m.Mutations)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method string, status int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequests.WithLabelValues(method, label).Inc()
}

func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.TokenRefresh.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveInvalidated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Invalidations.Add(float64(n))
}

func (m *Metrics) ObserveMutation(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Mutations.WithLabelValues(result).Inc()
}

// WriteTextfile dumps all counters in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
