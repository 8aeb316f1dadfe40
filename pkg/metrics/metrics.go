package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry           *prometheus.Registry
	registryOnce       sync.Once
	defaultMetricsPath = "/metrics"
	metricsEnabled     = false

	// Analysis metrics
	SpansAnalyzed    prometheus.Counter
	AnalysesRun      prometheus.Counter
	AnalysisDuration prometheus.Histogram

	// Failure classification metrics
	ClassificationsRun prometheus.Counter
	FailuresDetected   *prometheus.CounterVec

	// Regression comparison metrics
	ComparisonsRun      prometheus.Counter
	RegressionsDetected *prometheus.CounterVec
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		SpansAnalyzed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voiceobs_spans_analyzed_total",
				Help: "Total number of spans ingested by the analyzer",
			},
		)

		AnalysesRun = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voiceobs_analyses_total",
				Help: "Total number of analysis passes",
			},
		)

		AnalysisDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voiceobs_analysis_duration_seconds",
				Help:    "Time taken to analyze a span batch",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		)

		ClassificationsRun = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voiceobs_classifications_total",
				Help: "Total number of failure classification passes",
			},
		)

		FailuresDetected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceobs_failures_detected_total",
				Help: "Total number of classified failures",
			},
			[]string{"type", "severity"},
		)

		ComparisonsRun = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voiceobs_comparisons_total",
				Help: "Total number of baseline/current comparison passes",
			},
		)

		RegressionsDetected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceobs_regressions_detected_total",
				Help: "Total number of detected metric regressions",
			},
			[]string{"metric", "severity"},
		)

		registry.MustRegister(
			SpansAnalyzed,
			AnalysesRun,
			AnalysisDuration,
			ClassificationsRun,
			FailuresDetected,
			ComparisonsRun,
			RegressionsDetected,
		)

		if logger != nil {
			logger.Info("Prometheus metrics initialized")
		}
	})
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	return registry
}

// SetMetricsPath sets the HTTP path for metrics endpoint
func SetMetricsPath(path string) {
	defaultMetricsPath = path
}

// EnableMetrics enables or disables metrics collection
func EnableMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IsMetricsEnabled returns whether metrics are enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// RegisterHandler registers the metrics HTTP handler
func RegisterHandler(mux *http.ServeMux) {
	if metricsEnabled && registry != nil {
		handler := promhttp.HandlerFor(
			registry,
			promhttp.HandlerOpts{
				EnableOpenMetrics: true,
				Registry:          registry,
			},
		)
		mux.Handle(defaultMetricsPath, handler)
	}
}

// StartMetrics initializes the metrics service
func StartMetrics(logger *logrus.Logger, enabled bool) {
	if !enabled {
		EnableMetrics(false)
		logger.Info("Metrics collection is disabled")
		return
	}

	Init(logger)
	EnableMetrics(true)
	logger.WithField("metrics_path", defaultMetricsPath).Info("Metrics endpoint initialized")
}

// RecordAnalysis records one completed analysis pass
func RecordAnalysis(spanCount int, duration time.Duration) {
	if metricsEnabled {
		SpansAnalyzed.Add(float64(spanCount))
		AnalysesRun.Inc()
		AnalysisDuration.Observe(duration.Seconds())
	}
}

// RecordClassification records one completed classification pass
func RecordClassification() {
	if metricsEnabled {
		ClassificationsRun.Inc()
	}
}

// RecordFailure records one classified failure
func RecordFailure(failureType, severity string) {
	if metricsEnabled {
		FailuresDetected.WithLabelValues(failureType, severity).Inc()
	}
}

// RecordComparison records one completed comparison pass
func RecordComparison() {
	if metricsEnabled {
		ComparisonsRun.Inc()
	}
}

// RecordRegression records one detected regression
func RecordRegression(metric, severity string) {
	if metricsEnabled {
		RegressionsDetected.WithLabelValues(metric, severity).Inc()
	}
}
