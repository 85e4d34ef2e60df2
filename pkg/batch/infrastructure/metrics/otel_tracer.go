package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

const instrumentationName = "github.com/tigerroll/chicago-taxi-etl"

// OpenTelemetryTracer is an implementation of metrics.Tracer using the OpenTelemetry SDK.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer on top of provider.
func NewOpenTelemetryTracer(provider trace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: provider.Tracer(instrumentationName)}
}

// NewTracerProvider builds an SDK TracerProvider exporting over OTLP (http or grpc).
func NewTracerProvider(ctx context.Context, cfg coreConfig.TracingConfig) (*sdktrace.TracerProvider, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		opts := []otlptracehttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(cfg.ServiceName)),
	), nil
}

func newResource(serviceName string) *resource.Resource {
	return resource.NewWithAttributes("", attribute.String("service.name", serviceName))
}

// StartRunSpan starts a new span for a RunExecution.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "run",
		trace.WithAttributes(
			attribute.String("run.id", run.ID),
			attribute.String("run.trigger", run.Trigger),
		))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("run.status", run.Status.String()),
			attribute.Int("run.files_total", run.FilesTotal),
			attribute.Int("run.files_archived", run.FilesArchived),
			attribute.Int("run.files_failed", run.FilesFailed),
		)
		if run.Status == model.RunStatusFailed {
			span.SetStatus(codes.Error, run.Status.String())
		}
		span.End()
	}
}

// StartFileSpan starts a new span for a FileExecution.
func (t *OpenTelemetryTracer) StartFileSpan(ctx context.Context, file *model.FileExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "file",
		trace.WithAttributes(
			attribute.String("file.key", file.Key),
			attribute.String("file.batch_type", file.BatchType),
		))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("file.state", file.State.String()),
			attribute.Int("file.rows", file.Rows),
		)
		if file.Failed {
			span.SetStatus(codes.Error, file.ErrorMessage)
		}
		span.End()
	}
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		logger.Debugf("Tracer: error in module %s outside of a span: %v", module, err)
		return
	}
	span.RecordError(err, trace.WithAttributes(attribute.String("module", module)))
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

func toAttributes(m map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return attrs
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
