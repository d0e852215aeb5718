package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// classification service.
type Metrics struct {
	// Classification metrics.
	ClassificationsTotal      *prometheus.CounterVec // labels: outcome={success,invalid_observation,model_unavailable,assignment_inconsistent,error}
	ClassificationsByCategory *prometheus.CounterVec // labels: category
	ClassifyDuration          prometheus.Histogram

	// Model lifecycle metrics.
	ModelLoads    *prometheus.CounterVec // labels: outcome={success,error}
	ModelClusters prometheus.Gauge
	ModelLoaded   prometheus.Gauge

	// Streaming pipeline metrics.
	ReadingsConsumed prometheus.Counter
	ResultsProduced  prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Elevation lookup metrics.
	ElevationRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	ElevationCache       *prometheus.CounterVec // labels: result={hit,miss}
	ElevationAPIDuration prometheus.Histogram
	ElevationEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ClassificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "classifications_total",
			Help:      "Classification attempts by outcome.",
		}, []string{"outcome"}),
		ClassificationsByCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "classifications_by_category_total",
			Help:      "Successful classifications by risk category.",
		}, []string{"category"}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "classify_duration_seconds",
			Help:      "Duration of a single classification.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}),
		ModelLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "model_loads_total",
			Help:      "Model bundle load attempts by outcome.",
		}, []string{"outcome"}),
		ModelClusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "model_clusters",
			Help:      "Number of clusters in the currently loaded model.",
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "model_loaded",
			Help:      "1 when a usable model is loaded, 0 otherwise.",
		}),
		ReadingsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "readings_consumed_total",
			Help:      "Total station readings read from the source topic.",
		}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "results_produced_total",
			Help:      "Total classification results written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "transform_errors_total",
			Help:      "Total readings skipped because transformation failed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "batch_size",
			Help:      "Number of readings per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-classify-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ElevationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "elevation_requests_total",
			Help:      "Elevation API requests by outcome.",
		}, []string{"outcome"}),
		ElevationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "elevation_cache_total",
			Help:      "Elevation cache lookups by result.",
		}, []string{"result"}),
		ElevationAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "elevation_api_duration_seconds",
			Help:      "Elevation API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ElevationEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "elevation_enabled",
			Help:      "1 when elevation enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ClassificationsTotal,
		m.ClassificationsByCategory,
		m.ClassifyDuration,
		m.ModelLoads,
		m.ModelClusters,
		m.ModelLoaded,
		m.ReadingsConsumed,
		m.ResultsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ElevationRequests,
		m.ElevationCache,
		m.ElevationAPIDuration,
		m.ElevationEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ClassificationsTotal:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_risk", Name: "classifications_total"}, []string{"outcome"}),
		ClassificationsByCategory: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_risk", Name: "classifications_by_category_total"}, []string{"category"}),
		ClassifyDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_risk", Name: "classify_duration_seconds"}),
		ModelLoads:                prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_risk", Name: "model_loads_total"}, []string{"outcome"}),
		ModelClusters:             prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_risk", Name: "model_clusters"}),
		ModelLoaded:               prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_risk", Name: "model_loaded"}),
		ReadingsConsumed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_risk", Name: "readings_consumed_total"}),
		ResultsProduced:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_risk", Name: "results_produced_total"}),
		TransformErrors:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_risk", Name: "transform_errors_total"}),
		PipelineRunning:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_risk", Name: "pipeline_running"}),
		BatchSize:                 prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_risk", Name: "batch_size"}),
		BatchProcessingDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_risk", Name: "batch_processing_duration_seconds"}),
		ElevationRequests:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_risk", Name: "elevation_requests_total"}, []string{"outcome"}),
		ElevationCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_risk", Name: "elevation_cache_total"}, []string{"result"}),
		ElevationAPIDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_risk", Name: "elevation_api_duration_seconds"}),
		ElevationEnabled:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_risk", Name: "elevation_enabled"}),
	}
}
