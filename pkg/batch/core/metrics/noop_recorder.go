package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

// RecordRunStart does nothing.
func (r *NoOpMetricRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {}

// RecordRunEnd does nothing.
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {}

// RecordFileTransition does nothing.
func (r *NoOpMetricRecorder) RecordFileTransition(ctx context.Context, file *model.FileExecution, from model.FileState) {
}

// RecordFileEnd does nothing.
func (r *NoOpMetricRecorder) RecordFileEnd(ctx context.Context, file *model.FileExecution) {}

// RecordFeedRequest does nothing.
func (r *NoOpMetricRecorder) RecordFeedRequest(ctx context.Context, feed, outcome string, duration time.Duration) {
}

// RecordDuration does nothing.
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartRunSpan returns ctx unchanged.
func (t *NoOpTracer) StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func()) {
	return ctx, func() {}
}

// StartFileSpan returns ctx unchanged.
func (t *NoOpTracer) StartFileSpan(ctx context.Context, file *model.FileExecution) (context.Context, func()) {
	return ctx, func() {}
}

// RecordError does nothing.
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

// RecordEvent does nothing.
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {}

var _ Tracer = (*NoOpTracer)(nil)
