package metrics

import (
	"context"

	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
)

// --- Run Execution Listener ---

type MetricsRunListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsRunListener(recorder metrics.MetricRecorder) *MetricsRunListener {
	return &MetricsRunListener{recorder: recorder}
}

func (l *MetricsRunListener) BeforeRun(ctx context.Context, run *model.RunExecution) {
	l.recorder.RecordRunStart(ctx, run)
}

func (l *MetricsRunListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	l.recorder.RecordRunEnd(ctx, run)
}

var _ port.RunExecutionListener = (*MetricsRunListener)(nil)

// --- File Execution Listener ---

type MetricsFileListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsFileListener(recorder metrics.MetricRecorder) *MetricsFileListener {
	return &MetricsFileListener{recorder: recorder}
}

func (l *MetricsFileListener) BeforeFile(ctx context.Context, file *model.FileExecution) {}

func (l *MetricsFileListener) OnTransition(ctx context.Context, file *model.FileExecution, from model.FileState) {
	l.recorder.RecordFileTransition(ctx, file, from)
}

func (l *MetricsFileListener) AfterFile(ctx context.Context, file *model.FileExecution) {
	l.recorder.RecordFileEnd(ctx, file)
	if file.EndTime != nil {
		l.recorder.RecordDuration(ctx, "file", file.EndTime.Sub(file.StartTime), map[string]string{"batch_type": file.BatchType})
	}
}

var _ port.FileExecutionListener = (*MetricsFileListener)(nil)
