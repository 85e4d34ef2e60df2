package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// It owns its registry so that tests and multiple instances never collide on the default one.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Run Metrics
	runDurationSeconds *prometheus.HistogramVec
	runStatusCounter   *prometheus.CounterVec

	// File Metrics
	fileTransitionCounter *prometheus.CounterVec
	fileOutcomeCounter    *prometheus.CounterVec
	rowsWrittenCounter    *prometheus.CounterVec
	masterRowsCounter     *prometheus.CounterVec

	// Feed and operation Metrics
	feedRequestSeconds *prometheus.HistogramVec
	operationSeconds   *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_run_duration_seconds",
			Help:    "Duration of transform runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"trigger", "status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_run_status_total",
			Help: "Total number of transform runs by status.",
		}, []string{"trigger", "status"}),
		fileTransitionCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_file_transitions_total",
			Help: "Total lifecycle transitions of raw files.",
		}, []string{"batch_type", "from", "to"}),
		fileOutcomeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_files_total",
			Help: "Total raw files by outcome.",
		}, []string{"batch_type", "outcome", "error_kind"}), // outcome: archived, failed
		rowsWrittenCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_curated_rows_total",
			Help: "Total rows written to the curated area.",
		}, []string{"batch_type"}),
		masterRowsCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_master_rows_added_total",
			Help: "Total rows appended to master tables.",
		}, []string{"master"}),
		feedRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_feed_request_duration_seconds",
			Help:    "Duration of source feed requests including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"feed", "outcome"}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_operation_duration_seconds",
			Help:    "Duration of individual pipeline operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "batch_type"}),
	}

	// Register all metrics with the registry.
	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.runStatusCounter)
	registry.MustRegister(r.fileTransitionCounter)
	registry.MustRegister(r.fileOutcomeCounter)
	registry.MustRegister(r.rowsWrittenCounter)
	registry.MustRegister(r.masterRowsCounter)
	registry.MustRegister(r.feedRequestSeconds)
	registry.MustRegister(r.operationSeconds)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordRunStart records the start of a RunExecution.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	r.runStatusCounter.WithLabelValues(run.Trigger, run.Status.String()).Inc()
	logger.Debugf("Metrics: Run '%s' (%s) started.", run.ID, run.Trigger)
}

// RecordRunEnd records the end of a RunExecution.
func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	r.runStatusCounter.WithLabelValues(run.Trigger, run.Status.String()).Inc()
	r.runDurationSeconds.WithLabelValues(run.Trigger, run.Status.String()).Observe(run.Duration().Seconds())
	logger.Debugf("Metrics: Run '%s' ended with status %s.", run.ID, run.Status)
}

// RecordFileTransition records one lifecycle transition.
func (r *PrometheusRecorder) RecordFileTransition(ctx context.Context, file *model.FileExecution, from model.FileState) {
	r.fileTransitionCounter.WithLabelValues(file.BatchType, from.String(), file.State.String()).Inc()
}

// RecordFileEnd records the outcome of a raw file.
func (r *PrometheusRecorder) RecordFileEnd(ctx context.Context, file *model.FileExecution) {
	if file.Failed {
		r.fileOutcomeCounter.WithLabelValues(file.BatchType, "failed", file.ErrorKind).Inc()
		return
	}
	r.fileOutcomeCounter.WithLabelValues(file.BatchType, "archived", "").Inc()
	r.rowsWrittenCounter.WithLabelValues(file.BatchType).Add(float64(file.Rows))
	if file.NewCompanies > 0 {
		r.masterRowsCounter.WithLabelValues("company").Add(float64(file.NewCompanies))
	}
	if file.NewPaymentTypes > 0 {
		r.masterRowsCounter.WithLabelValues("payment_type").Add(float64(file.NewPaymentTypes))
	}
}

// RecordFeedRequest records one source feed request.
func (r *PrometheusRecorder) RecordFeedRequest(ctx context.Context, feed, outcome string, duration time.Duration) {
	r.feedRequestSeconds.WithLabelValues(feed, outcome).Observe(duration.Seconds())
}

// RecordDuration records the duration of a named operation.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationSeconds.WithLabelValues(name, tags["batch_type"]).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
