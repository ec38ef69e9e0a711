package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a Set.
type Metrics struct {
	LibrariesOpened prometheus.Counter
	LibraryCacheHit prometheus.Counter
	ModulesLoaded   *prometheus.CounterVec
	LoadFailures    *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	ModulesActive   prometheus.Gauge
}

// NewMetrics registers the loader collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LibrariesOpened: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mammoth",
				Subsystem: "loader",
				Name:      "libraries_opened_total",
				Help:      "Number of distinct module libraries opened",
			},
		),
		LibraryCacheHit: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mammoth",
				Subsystem: "loader",
				Name:      "library_cache_hits_total",
				Help:      "Number of library loads served from the cache",
			},
		),
		ModulesLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mammoth",
				Subsystem: "loader",
				Name:      "modules_loaded_total",
				Help:      "Number of module instances constructed and registered",
			},
			[]string{"module"},
		),
		LoadFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mammoth",
				Subsystem: "loader",
				Name:      "load_failures_total",
				Help:      "Number of failed module loads by failure kind",
			},
			[]string{"kind"},
		),
		LoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "mammoth",
				Subsystem: "loader",
				Name:      "load_duration_seconds",
				Help:      "Time spent loading and constructing one module",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		ModulesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mammoth",
				Subsystem: "loader",
				Name:      "modules_active",
				Help:      "Number of module instances currently registered",
			},
		),
	}
}
