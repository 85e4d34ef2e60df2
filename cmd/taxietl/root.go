package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/tigerroll/chicago-taxi-etl/internal/extract"
	"github.com/tigerroll/chicago-taxi-etl/internal/feed"
	"github.com/tigerroll/chicago-taxi-etl/internal/lifecycle"
	"github.com/tigerroll/chicago-taxi-etl/internal/schedule"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/database/gorm/sqlite"
	storageAdapter "github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/adapter/storage/s3"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/component/migration"
	coreConfig "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/config"
	infraMetrics "github.com/tigerroll/chicago-taxi-etl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/infrastructure/repository"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/listener"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

const stopTimeout = 30 * time.Second

// cliContext carries the flag values and the configuration loaded from them.
type cliContext struct {
	v   *viper.Viper
	cfg *coreConfig.Config
}

func newRootCommand() *cobra.Command {
	c := &cliContext{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "taxietl",
		Short:         "Chicago taxi trip and weather ETL",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "configuration file (default: embedded application.yaml)")
	flags.String("env-file", "", ".env file loaded before the configuration (default: ./.env)")
	flags.String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR); overrides system.logging.level")
	flags.String("log-format", "", "log format (console, json); overrides system.logging.format")
	for _, name := range []string{"config", "env-file", "log-level", "log-format"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}
	c.v.SetEnvPrefix("TAXIETL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	rootCmd.AddCommand(newExtractCommand(c))
	rootCmd.AddCommand(newTransformCommand(c))
	rootCmd.AddCommand(newRunCommand(c))
	rootCmd.AddCommand(newScheduleCommand(c))
	rootCmd.AddCommand(newRunsCommand(c))
	rootCmd.AddCommand(newMigrateCommand(c))
	return rootCmd
}

// loadConfig reads the configuration named by --config, or the embedded one, and applies the log flags.
func (c *cliContext) loadConfig() error {
	envFile := c.v.GetString("env-file")
	var (
		cfg *coreConfig.Config
		err error
	)
	if path := c.v.GetString("config"); path != "" {
		cfg, err = coreConfig.LoadConfigFile(envFile, path)
	} else {
		cfg, err = coreConfig.LoadConfig(envFile, embeddedConfig)
	}
	if err != nil {
		return err
	}

	logging := &cfg.Etl.System.Logging
	if lvl := c.v.GetString("log-level"); lvl != "" {
		logging.Level = lvl
	}
	if format := c.v.GetString("log-format"); format != "" {
		logging.Format = format
	}
	logger.Configure(logging.Level, logging.Format)
	c.cfg = cfg
	return nil
}

// newApp assembles every module. Fx only constructs what the populated targets need,
// so the extract command never opens the ledger database.
func (c *cliContext) newApp(targets ...interface{}) *fx.App {
	return fx.New(
		fx.Supply(c.cfg),
		logger.Module,
		coreConfig.Module,

		storageAdapter.Module,
		local.Module,
		gcs.Module,
		s3.Module,

		gorm.Module,
		sqlite.Module,
		postgres.Module,
		mysql.Module,
		migration.Module,
		repository.Module,

		infraMetrics.Module,
		listener.Module,

		feed.Module,
		extract.Module,
		lifecycle.Module,
		schedule.Module,

		fx.Populate(targets...),
	)
}

// withApp starts the application, runs fn and stops the application again.
func (c *cliContext) withApp(ctx context.Context, fn func() error, targets ...interface{}) error {
	app := c.newApp(targets...)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			logger.Warnf("Application stop reported an error: %v", err)
		}
	}()
	return fn()
}
