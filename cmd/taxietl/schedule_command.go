package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerroll/chicago-taxi-etl/internal/schedule"
	infraMetrics "github.com/tigerroll/chicago-taxi-etl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

func newScheduleCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run extraction and transformation on their cron schedules until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				s    *schedule.Scheduler
				prom *infraMetrics.PrometheusRecorder
			)
			return c.withApp(cmd.Context(), func() error {
				return c.serve(cmd.Context(), s, prom)
			}, &s, &prom)
		},
	}
}

// serve runs the scheduler and, when metrics.listen_address is set, the metrics server until ctx is done.
func (c *cliContext) serve(ctx context.Context, s *schedule.Scheduler, prom *infraMetrics.PrometheusRecorder) error {
	if err := s.Start(); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	addr := c.cfg.Etl.Metrics.ListenAddress
	app := schedule.NewServer(prom.GetRegistry(), s, logger.L())
	if addr != "" {
		go func() {
			logger.Infof("Serving /metrics and /healthz on %s.", addr)
			serverErr <- app.Listen(addr)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		logger.Infof("Shutdown requested, stopping the scheduler.")
	case err = <-serverErr:
		err = fmt.Errorf("metrics server stopped: %w", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if stopErr := s.Stop(stopCtx); stopErr != nil {
		logger.Warnf("Scheduler did not stop cleanly: %v", stopErr)
	}
	if addr != "" {
		if shutdownErr := app.ShutdownWithContext(stopCtx); shutdownErr != nil {
			logger.Warnf("Metrics server shutdown failed: %v", shutdownErr)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
