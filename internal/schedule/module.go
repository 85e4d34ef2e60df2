package schedule

import (
	"go.uber.org/fx"

	"github.com/tigerroll/chicago-taxi-etl/internal/extract"
	"github.com/tigerroll/chicago-taxi-etl/internal/lifecycle"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// Module provides the Scheduler wired to the extractor and the lifecycle manager.
var Module = fx.Options(
	fx.Provide(func(e *extract.Extractor, m *lifecycle.Manager, cfg *coreConfig.Config) *Scheduler {
		return NewScheduler(e, m, cfg, logger.L())
	}),
)
