// Package metrics provides Prometheus metrics for the cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"simplecache/internal/cache"
)

// Prometheus implements cache.Metrics on top of Prometheus collectors.
type Prometheus struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Evictions *prometheus.CounterVec
	Entries   prometheus.Gauge
}

var _ cache.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the cache collectors with reg under namespace.
// A nil reg means prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Prometheus{
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Total number of lookups that found a live entry",
		}),
		Misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misses_total",
			Help:      "Total number of lookups for absent or expired keys",
		}),
		Evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Total number of entries removed by capacity or expiration",
		}, []string{"reason"}),
		Entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Number of stored entries, including expired ones not yet removed",
		}),
	}
}

func (p *Prometheus) Hit()  { p.Hits.Inc() }
func (p *Prometheus) Miss() { p.Misses.Inc() }

func (p *Prometheus) Evict(reason cache.EvictReason) {
	p.Evictions.WithLabelValues(reason.String()).Inc()
}

func (p *Prometheus) Size(n int) { p.Entries.Set(float64(n)) }
