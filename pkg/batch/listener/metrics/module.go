package metrics

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
)

// Module provides the metrics listeners. The MetricRecorder itself comes from infrastructure/metrics.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewMetricsRunListener,
		fx.As(new(port.RunExecutionListener)),
		fx.ResultTags(`group:"run_listeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewMetricsFileListener,
		fx.As(new(port.FileExecutionListener)),
		fx.ResultTags(`group:"file_listeners"`),
	)),
)
