package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch results recorded by Metrics
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics counts resource manager activity
type Metrics struct {
	fetches   *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataprovider",
			Name:      "fetch_total",
			Help:      "Resource fetches that ran the fetcher, by result.",
		}, []string{"resource", "result"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataprovider",
			Name:      "cache_hits_total",
			Help:      "Resource fetches answered from the cache.",
		}, []string{"resource"}),
	}
	reg.MustRegister(m.fetches, m.cacheHits)
	return m
}

func (m *Metrics) fetched(name, result string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(name, result).Inc()
}

func (m *Metrics) hit(name string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(name).Inc()
}
