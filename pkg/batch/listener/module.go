package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/listener/ledger"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/listener/logging"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/listener/metrics"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/listener/tracing"
)

// Module aggregates all run and file listeners.
var Module = fx.Options(
	logging.Module,
	metrics.Module,
	tracing.Module,
	ledger.Module,
)
