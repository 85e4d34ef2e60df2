package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/tigerroll/chicago-taxi-etl/internal/extract"
	"github.com/tigerroll/chicago-taxi-etl/internal/lifecycle"
	"github.com/tigerroll/chicago-taxi-etl/internal/schedule"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// triggerCLI is recorded as the trigger of runs started from the command line.
const triggerCLI = "cli"

func newExtractCommand(c *cliContext) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Download one day of trips and weather into the pending prefixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.extractionDate(date)
			if err != nil {
				return err
			}
			var e *extract.Extractor
			return c.withApp(cmd.Context(), func() error {
				return runExtract(cmd.Context(), cmd.OutOrStdout(), e, d)
			}, &e)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to extract as YYYY-MM-DD (default: today minus feeds.lag_months)")
	return cmd
}

func newTransformCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Process every pending raw file into curated tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var m *lifecycle.Manager
			return c.withApp(cmd.Context(), func() error {
				return c.runTransform(cmd.Context(), cmd.OutOrStdout(), m)
			}, &m)
		},
	}
}

func newRunCommand(c *cliContext) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract one day, then transform the whole backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.extractionDate(date)
			if err != nil {
				return err
			}
			var (
				e *extract.Extractor
				m *lifecycle.Manager
			)
			return c.withApp(cmd.Context(), func() error {
				var errs *multierror.Error
				// A failed feed still leaves the rest of the backlog worth transforming.
				if err := runExtract(cmd.Context(), cmd.OutOrStdout(), e, d); err != nil {
					errs = multierror.Append(errs, err)
				}
				if err := c.runTransform(cmd.Context(), cmd.OutOrStdout(), m); err != nil {
					errs = multierror.Append(errs, err)
				}
				return errs.ErrorOrNil()
			}, &e, &m)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to extract as YYYY-MM-DD (default: today minus feeds.lag_months)")
	return cmd
}

func (c *cliContext) extractionDate(date string) (time.Time, error) {
	if date != "" {
		return extract.ParseDate(date)
	}
	return extract.DefaultDate(time.Now(), c.cfg.Etl.Feeds.LagMonths, c.cfg.Etl.System.Timezone)
}

func runExtract(ctx context.Context, out io.Writer, e *extract.Extractor, date time.Time) error {
	results, err := e.Extract(ctx, date)
	for _, r := range results {
		fmt.Fprintf(out, "extracted %s -> %s (%d bytes)\n", r.Feed, r.Key, r.Bytes)
	}
	return err
}

func (c *cliContext) runTransform(ctx context.Context, out io.Writer, m *lifecycle.Manager) error {
	return schedule.WithLock(c.cfg.Etl.Schedule.LockFile, func() error {
		run, err := m.Run(ctx, triggerCLI)
		if run != nil {
			printRunSummary(out, run)
		}
		return err
	})
}

func printRunSummary(out io.Writer, run *model.RunExecution) {
	fmt.Fprintf(out, "run %s %s: %d files, %d archived, %d failed, %d new companies, %d new payment types (%s)\n",
		run.ID, run.Status, run.FilesTotal, run.FilesArchived, run.FilesFailed,
		run.NewCompanies, run.NewPaymentTypes, run.Duration().Round(time.Millisecond))
}
