package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ridership"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dataset loader and the dashboard views.
type Metrics struct {
	// Dataset loading metrics.
	DatasetLoads    *prometheus.CounterVec // labels: source={primary,fallback}, outcome={success,error}
	DatasetCache    *prometheus.CounterVec // labels: result={hit,miss}
	DatasetRows     prometheus.Gauge
	DroppedRows     prometheus.Counter
	UndefinedRatios *prometheus.CounterVec // labels: column
	LoadDuration    prometheus.Histogram

	// View metrics.
	ViewRequests *prometheus.CounterVec   // labels: view, outcome={success,error}
	ViewDuration *prometheus.HistogramVec // labels: view
	ViewCache    *prometheus.CounterVec   // labels: result={hit,miss}

	// Refresh metrics.
	RefreshNotices prometheus.Counter
	WatcherRunning prometheus.Gauge
	LoadEvents     *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset reads from disk by source file and outcome.",
		}, []string{"source", "outcome"}),
		DatasetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_cache_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Number of stations in the loaded dataset.",
		}),
		DroppedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_dropped_rows_total",
			Help:      "Rows dropped at load for a missing station name or region.",
		}),
		UndefinedRatios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undefined_ratios_total",
			Help:      "Percent changes with an undefined ratio that were set to 0, by column.",
		}, []string{"column"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of reading and deriving a dataset.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ViewRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_requests_total",
			Help:      "Dashboard view computations by view and outcome.",
		}, []string{"view", "outcome"}),
		ViewDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_duration_seconds",
			Help:      "Duration of a dashboard view computation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"view"}),
		ViewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_total",
			Help:      "Dashboard view cache lookups by result.",
		}, []string{"result"}),
		RefreshNotices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_notices_total",
			Help:      "Dataset refresh notices consumed.",
		}),
		WatcherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_watcher_running",
			Help:      "1 when the refresh watcher is active, 0 when shut down.",
		}),
		LoadEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_events_total",
			Help:      "dataset.loaded events published by outcome.",
		}, []string{"outcome"}),
	}

	prometheus.MustRegister(
		m.DatasetLoads,
		m.DatasetCache,
		m.DatasetRows,
		m.DroppedRows,
		m.UndefinedRatios,
		m.LoadDuration,
		m.ViewRequests,
		m.ViewDuration,
		m.ViewCache,
		m.RefreshNotices,
		m.WatcherRunning,
		m.LoadEvents,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatasetLoads:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "dataset_loads_total"}, []string{"source", "outcome"}),
		DatasetCache:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "dataset_cache_total"}, []string{"result"}),
		DatasetRows:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "dataset_rows"}),
		DroppedRows:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "dataset_dropped_rows_total"}),
		UndefinedRatios: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "undefined_ratios_total"}, []string{"column"}),
		LoadDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "dataset_load_duration_seconds"}),
		ViewRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "view_requests_total"}, []string{"view", "outcome"}),
		ViewDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "view_duration_seconds"}, []string{"view"}),
		ViewCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "view_cache_total"}, []string{"result"}),
		RefreshNotices:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "refresh_notices_total"}),
		WatcherRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "refresh_watcher_running"}),
		LoadEvents:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "load_events_total"}, []string{"outcome"}),
	}
}
