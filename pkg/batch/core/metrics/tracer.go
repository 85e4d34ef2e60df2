package metrics

import (
	"context"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing.
// It lets the run and every file processed inside it show up as nested spans.
type Tracer interface {
	// StartRunSpan starts a Span for a RunExecution.
	//
	// Returns: A context with the new Span set, and a function to end the Span.
	StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func())

	// StartFileSpan starts a Span for a FileExecution.
	//
	// ctx: The parent context (typically a context carrying the run Span).
	//
	// Returns: A context with the new Span set, and a function to end the Span.
	// The end function records the file outcome before closing the Span.
	StartFileSpan(ctx context.Context, file *model.FileExecution) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// module: The component where the error occurred (e.g., "normalize", "master").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
