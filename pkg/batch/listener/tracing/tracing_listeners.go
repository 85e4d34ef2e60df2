package tracing

import (
	"context"
	"errors"

	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
)

// TracingFileListener adds span events for lifecycle transitions to the file span carried by ctx.
// The spans themselves are started by the lifecycle manager, which owns the context.
type TracingFileListener struct {
	tracer metrics.Tracer
}

func NewTracingFileListener(tracer metrics.Tracer) *TracingFileListener {
	return &TracingFileListener{tracer: tracer}
}

func (l *TracingFileListener) BeforeFile(ctx context.Context, file *model.FileExecution) {}

func (l *TracingFileListener) OnTransition(ctx context.Context, file *model.FileExecution, from model.FileState) {
	l.tracer.RecordEvent(ctx, "transition", map[string]interface{}{
		"from": from.String(),
		"to":   file.State.String(),
	})
}

func (l *TracingFileListener) AfterFile(ctx context.Context, file *model.FileExecution) {
	if file.Failed {
		l.tracer.RecordError(ctx, file.ErrorKind, errors.New(file.ErrorMessage))
	}
}

var _ port.FileExecutionListener = (*TracingFileListener)(nil)
