package feed

import (
	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

type feedsParams struct {
	fx.In
	Config   *coreConfig.Config
	Recorder metrics.MetricRecorder `optional:"true"`
}

// Module provides both feeds as []Feed.
var Module = fx.Options(
	fx.Provide(func(p feedsParams) []Feed {
		return NewFeeds(p.Config, logger.L(), p.Recorder)
	}),
)
