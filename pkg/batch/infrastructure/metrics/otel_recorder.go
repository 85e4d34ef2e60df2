package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
)

// OTelMetricRecorder records the same run and file metrics as PrometheusRecorder through an
// OpenTelemetry Meter, so they can be pushed to an OTLP collector.
type OTelMetricRecorder struct {
	runs        metric.Int64Counter
	runDuration metric.Float64Histogram
	transitions metric.Int64Counter
	files       metric.Int64Counter
	rows        metric.Int64Counter
	masterRows  metric.Int64Counter
	feedLatency metric.Float64Histogram
	operations  metric.Float64Histogram
}

// NewMeterProvider builds an SDK MeterProvider with a periodic OTLP reader.
func NewMeterProvider(ctx context.Context, cfg coreConfig.OTLPMetricsConfig, serviceName string) (*sdkmetric.MeterProvider, error) {
	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	default:
		opts := []otlpmetrichttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(newResource(serviceName)),
	), nil
}

// NewOTelMetricRecorder creates the instruments on provider's meter.
func NewOTelMetricRecorder(provider metric.MeterProvider) (*OTelMetricRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelMetricRecorder{}
	var err error

	if r.runs, err = meter.Int64Counter("etl.runs", metric.WithDescription("Transform runs by status.")); err != nil {
		return nil, err
	}
	if r.runDuration, err = meter.Float64Histogram("etl.run.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.transitions, err = meter.Int64Counter("etl.file.transitions", metric.WithDescription("Lifecycle transitions of raw files.")); err != nil {
		return nil, err
	}
	if r.files, err = meter.Int64Counter("etl.files", metric.WithDescription("Raw files by outcome.")); err != nil {
		return nil, err
	}
	if r.rows, err = meter.Int64Counter("etl.curated.rows"); err != nil {
		return nil, err
	}
	if r.masterRows, err = meter.Int64Counter("etl.master.rows_added"); err != nil {
		return nil, err
	}
	if r.feedLatency, err = meter.Float64Histogram("etl.feed.request.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.operations, err = meter.Float64Histogram("etl.operation.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordRunStart records the start of a RunExecution.
func (r *OTelMetricRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	r.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", run.Trigger), attribute.String("status", run.Status.String())))
}

// RecordRunEnd records the end of a RunExecution.
func (r *OTelMetricRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	attrs := metric.WithAttributes(attribute.String("trigger", run.Trigger), attribute.String("status", run.Status.String()))
	r.runs.Add(ctx, 1, attrs)
	r.runDuration.Record(ctx, run.Duration().Seconds(), attrs)
}

// RecordFileTransition records one lifecycle transition.
func (r *OTelMetricRecorder) RecordFileTransition(ctx context.Context, file *model.FileExecution, from model.FileState) {
	r.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("batch_type", file.BatchType),
		attribute.String("from", from.String()),
		attribute.String("to", file.State.String())))
}

// RecordFileEnd records the outcome of a raw file.
func (r *OTelMetricRecorder) RecordFileEnd(ctx context.Context, file *model.FileExecution) {
	if file.Failed {
		r.files.Add(ctx, 1, metric.WithAttributes(
			attribute.String("batch_type", file.BatchType),
			attribute.String("outcome", "failed"),
			attribute.String("error_kind", file.ErrorKind)))
		return
	}
	r.files.Add(ctx, 1, metric.WithAttributes(
		attribute.String("batch_type", file.BatchType), attribute.String("outcome", "archived")))
	r.rows.Add(ctx, int64(file.Rows), metric.WithAttributes(attribute.String("batch_type", file.BatchType)))
	if file.NewCompanies > 0 {
		r.masterRows.Add(ctx, int64(file.NewCompanies), metric.WithAttributes(attribute.String("master", "company")))
	}
	if file.NewPaymentTypes > 0 {
		r.masterRows.Add(ctx, int64(file.NewPaymentTypes), metric.WithAttributes(attribute.String("master", "payment_type")))
	}
}

// RecordFeedRequest records one source feed request.
func (r *OTelMetricRecorder) RecordFeedRequest(ctx context.Context, feed, outcome string, duration time.Duration) {
	r.feedLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("feed", feed), attribute.String("outcome", outcome)))
}

// RecordDuration records the duration of a named operation.
func (r *OTelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operations.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", name), attribute.String("batch_type", tags["batch_type"])))
}

var _ metrics.MetricRecorder = (*OTelMetricRecorder)(nil)

// MultiRecorder fans every call out to several recorders.
type MultiRecorder []metrics.MetricRecorder

func (m MultiRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	for _, r := range m {
		r.RecordRunStart(ctx, run)
	}
}

func (m MultiRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	for _, r := range m {
		r.RecordRunEnd(ctx, run)
	}
}

func (m MultiRecorder) RecordFileTransition(ctx context.Context, file *model.FileExecution, from model.FileState) {
	for _, r := range m {
		r.RecordFileTransition(ctx, file, from)
	}
}

func (m MultiRecorder) RecordFileEnd(ctx context.Context, file *model.FileExecution) {
	for _, r := range m {
		r.RecordFileEnd(ctx, file)
	}
}

func (m MultiRecorder) RecordFeedRequest(ctx context.Context, feed, outcome string, duration time.Duration) {
	for _, r := range m {
		r.RecordFeedRequest(ctx, feed, outcome, duration)
	}
}

func (m MultiRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	for _, r := range m {
		r.RecordDuration(ctx, name, duration, tags)
	}
}

var _ metrics.MetricRecorder = MultiRecorder(nil)
