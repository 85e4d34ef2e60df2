package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/component/migration"
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	domainRepository "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/repository"
)

const timeLayout = "2006-01-02 15:04:05"

func newRunsCommand(c *cliContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recent runs, or the files of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var repo domainRepository.RunRepository
			return c.withApp(cmd.Context(), func() error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					run, err := repo.FindRunExecutionByID(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					printFiles(out, run.FileExecutions)
					return nil
				}
				runs, err := repo.FindRecentRunExecutions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printRuns(out, runs)
				return nil
			}, &repo)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

func newMigrateCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the run ledger schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := c.cfg.Etl.Ledger.DatabaseRef
			if ref == "" {
				return errors.New("ledger.database_ref is empty: the ledger is kept in memory and has no schema")
			}
			var (
				resolver  database.DBConnectionResolver
				migrators migration.MigratorProvider
			)
			return c.withApp(cmd.Context(), func() error {
				conn, err := resolver.ResolveDBConnection(cmd.Context(), ref)
				if err != nil {
					return err
				}
				if err := migration.ApplyLedgerMigrations(cmd.Context(), migrators, conn); err != nil {
					return err
				}
				version, dirty, err := migrators.NewMigrator(conn).Version(cmd.Context(),
					migration.LedgerMigrationsFS(), conn.Type(), migration.LedgerMigrationsTable)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ledger database '%s' (%s) at schema version %d (dirty: %t)\n",
					ref, conn.Type(), version, dirty)
				return nil
			}, &resolver, &migrators)
		},
	}
}

func printRuns(out io.Writer, runs []*model.RunExecution) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Trigger,
			r.Status.String(),
			r.StartTime.Local().Format(timeLayout),
			formatDuration(r.StartTime, r.EndTime),
			strconv.Itoa(r.FilesTotal),
			strconv.Itoa(r.FilesArchived),
			strconv.Itoa(r.FilesFailed),
			strconv.Itoa(r.NewCompanies),
			strconv.Itoa(r.NewPaymentTypes),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"RUN", "TRIGGER", "STATUS", "STARTED", "DURATION", "FILES", "ARCHIVED", "FAILED", "NEW COMPANIES", "NEW PAYMENT TYPES"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
}

func printFiles(out io.Writer, files []*model.FileExecution) {
	if len(files) == 0 {
		fmt.Fprintln(out, "no files in this run")
		return
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		state := f.State.String()
		if f.Failed {
			state += " (failed)"
		}
		rows = append(rows, []string{
			strconv.Itoa(f.Seq),
			f.BatchType,
			f.Key,
			state,
			strconv.Itoa(f.Rows),
			f.ErrorKind,
			f.ErrorMessage,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "TYPE", "KEY", "STATE", "ROWS", "ERROR KIND", "ERROR"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

func formatDuration(start time.Time, end *time.Time) string {
	if end == nil {
		return "-"
	}
	return end.Sub(start).Round(time.Second).String()
}
