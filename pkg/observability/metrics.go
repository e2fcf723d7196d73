package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns an http.Handler serving the default Prometheus
// registry's metrics in the standard exposition format.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Metrics holds all Prometheus metrics for the RaBitQ search engine.
type Metrics struct {
	// REST request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Fit/build metrics
	FitTotal    prometheus.Counter
	FitDuration prometheus.Histogram
	FitVectors  prometheus.Counter

	// Refinement metrics
	RefineTotal            prometheus.Counter
	RefinePhaseDuration    *prometheus.HistogramVec
	RefineSupplementsTotal prometheus.Counter

	// Search metrics
	SearchTotal      prometheus.Counter
	SearchLatency    prometheus.Histogram
	SearchResultSize prometheus.Histogram
	RecallSample     prometheus.Histogram

	// Candidate-pool occupancy, sampled during refinement
	CandidatePoolOccupancy prometheus.Histogram
	PrunedPoolOccupancy    prometheus.Histogram

	// Graph metrics
	GraphSize        prometheus.Gauge
	GraphDegreeGauge prometheus.Gauge

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rabitq_requests_total",
				Help: "Total number of REST requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rabitq_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rabitq_request_errors_total",
				Help: "Total number of request errors by method and error type",
			},
			[]string{"method", "error_type"},
		),

		FitTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rabitq_fit_total",
				Help: "Total number of space Fit operations",
			},
		),
		FitDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rabitq_fit_duration_seconds",
				Help:    "Fit duration in seconds",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		FitVectors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rabitq_fit_vectors_total",
				Help: "Total number of vectors passed to Fit",
			},
		),

		RefineTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rabitq_refine_total",
				Help: "Total number of GraphRefiner.Refine runs",
			},
		),
		RefinePhaseDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rabitq_refine_phase_duration_seconds",
				Help:    "Refinement phase duration in seconds by phase name",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"phase"},
		),
		RefineSupplementsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rabitq_refine_angle_supplements_total",
				Help: "Total number of nodes padded by the angle-based supplement phase",
			},
		),

		SearchTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rabitq_search_total",
				Help: "Total number of search operations",
			},
		),
		SearchLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rabitq_search_latency_seconds",
				Help:    "Search latency in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		SearchResultSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rabitq_search_result_size",
				Help:    "Number of results returned by search",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
			},
		),
		RecallSample: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rabitq_search_recall_sample",
				Help:    "Sampled recall@k against an exact-search oracle (0-1)",
				Buckets: []float64{.8, .85, .9, .92, .94, .95, .96, .97, .98, .99, 1.0},
			},
		),

		CandidatePoolOccupancy: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rabitq_refine_candidate_pool_occupancy",
				Help:    "Per-node candidate pool size before pruning, sampled during refinement",
				Buckets: []float64{32, 64, 128, 256, 400, 600, 750},
			},
		),
		PrunedPoolOccupancy: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rabitq_refine_pruned_pool_occupancy",
				Help:    "Per-node pruned-candidate pool size, sampled during refinement",
				Buckets: []float64{8, 32, 64, 128, 200, 300},
			},
		),

		GraphSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rabitq_graph_nodes",
				Help: "Number of nodes in the current graph",
			},
		),
		GraphDegreeGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rabitq_graph_degree_bound",
				Help: "Fixed out-degree bound of the current graph",
			},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rabitq_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rabitq_memory_bytes",
				Help: "Process memory usage in bytes",
			},
		),
	}
}

// RecordRequest records a REST request with duration and status.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records a REST request error.
func (m *Metrics) RecordError(method, errorType string) {
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// RecordFit records a completed space Fit operation.
func (m *Metrics) RecordFit(duration time.Duration, vectorCount int) {
	m.FitTotal.Inc()
	m.FitDuration.Observe(duration.Seconds())
	m.FitVectors.Add(float64(vectorCount))
}

// RecordRefine records a completed GraphRefiner.Refine run.
func (m *Metrics) RecordRefine() {
	m.RefineTotal.Inc()
}

// RecordRefinePhase records one refinement phase's wall-clock duration.
func (m *Metrics) RecordRefinePhase(phase string, duration time.Duration) {
	m.RefinePhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordAngleSupplements records how many nodes the angle-based supplement
// phase had to pad with additional neighbors.
func (m *Metrics) RecordAngleSupplements(count int) {
	m.RefineSupplementsTotal.Add(float64(count))
}

// RecordSearch records a search operation's latency and result size.
func (m *Metrics) RecordSearch(duration time.Duration, resultSize int) {
	m.SearchTotal.Inc()
	m.SearchLatency.Observe(duration.Seconds())
	m.SearchResultSize.Observe(float64(resultSize))
}

// RecordRecallSample records one sampled recall@k measurement against an
// exact-search oracle.
func (m *Metrics) RecordRecallSample(recall float64) {
	m.RecallSample.Observe(recall)
}

// RecordPoolOccupancy records a per-node candidate/pruned pool size sampled
// during refinement.
func (m *Metrics) RecordPoolOccupancy(candidateSize, prunedSize int) {
	m.CandidatePoolOccupancy.Observe(float64(candidateSize))
	m.PrunedPoolOccupancy.Observe(float64(prunedSize))
}

// UpdateGraphStats updates the current graph's node count and degree bound.
func (m *Metrics) UpdateGraphStats(nodes, degree int) {
	m.GraphSize.Set(float64(nodes))
	m.GraphDegreeGauge.Set(float64(degree))
}

// UpdateGoroutineCount updates the goroutine count gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates the memory usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
