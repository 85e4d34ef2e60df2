package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	infraMetrics "github.com/tigerroll/chicago-taxi-etl/pkg/batch/infrastructure/metrics"
)

func TestOpenTelemetryTracer_NestsFileSpansUnderRun(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := infraMetrics.NewOpenTelemetryTracer(tp)

	run := model.NewRunExecution("cli")
	runCtx, endRun := tracer.StartRunSpan(context.Background(), run)

	fe := run.NewFileExecution("taxi", "raw_data/to_processed/taxi_data/taxi_raw_2024-01-01.json")
	fileCtx, endFile := tracer.StartFileSpan(runCtx, fe)
	tracer.RecordEvent(fileCtx, "curated_written", map[string]interface{}{"rows": 3})
	tracer.RecordError(fileCtx, "lifecycle", errors.New("copy failed"))
	fe.MarkAsFailed(errors.New("copy failed"))
	endFile()

	run.Finish(nil)
	endRun()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	file, runSpan := spans[0], spans[1]
	assert.Equal(t, "file", file.Name())
	assert.Equal(t, "run", runSpan.Name())
	assert.Equal(t, runSpan.SpanContext().SpanID(), file.Parent().SpanID())
	assert.Equal(t, codes.Error, file.Status().Code)
	assert.Equal(t, codes.Unset, runSpan.Status().Code, "a run with failed files still completes")

	var names []string
	for _, ev := range file.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"curated_written", "exception"}, names)
}

func TestOTelMetricRecorder_CollectsFileOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r, err := infraMetrics.NewOTelMetricRecorder(mp)
	require.NoError(t, err)
	ctx := context.Background()

	run := model.NewRunExecution("schedule")
	fe := run.NewFileExecution("taxi", "k.json")
	fe.State, fe.Rows, fe.NewCompanies = model.FileStateArchived, 4, 1
	r.RecordFileEnd(ctx, fe)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["etl.files"])
	assert.Equal(t, int64(4), sums["etl.curated.rows"])
	assert.Equal(t, int64(1), sums["etl.master.rows_added"])
}
