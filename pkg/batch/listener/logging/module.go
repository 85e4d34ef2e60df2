package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
)

// Module provides the logging listeners to the "run_listeners" and "file_listeners" groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLoggingRunListener,
		fx.As(new(port.RunExecutionListener)),
		fx.ResultTags(`group:"run_listeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewLoggingFileListener,
		fx.As(new(port.FileExecutionListener)),
		fx.ResultTags(`group:"file_listeners"`),
	)),
)
