package tracing

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
)

// Module provides the tracing listener. The Tracer is provided by infrastructure/metrics.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewTracingFileListener,
		fx.As(new(port.FileExecutionListener)),
		fx.ResultTags(`group:"file_listeners"`),
	)),
)
