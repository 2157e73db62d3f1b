package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nozze/internal/amqp"
	"nozze/internal/cli"
	"nozze/internal/config"
	"nozze/internal/log"
	"nozze/internal/metrics"
	"nozze/internal/services"
	"nozze/internal/storage"
)

// app is what every subcommand works with once the root command has opened
// the database.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	repo   *storage.SQLiteRepository
	amqp   *amqp.Client

	seating *services.SeatingService
	budget  *services.BudgetService
}

func (a *app) close() error {
	var errs []error
	if a.amqp != nil {
		errs = append(errs, a.amqp.Close())
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	return errors.Join(errs...)
}

// newRootCmd returns the command tree and a func releasing whatever the run
// opened. The release func runs even when a command fails.
func newRootCmd() (*cobra.Command, func() error) {
	var (
		dbPath    string
		verbose   bool
		noPublish bool
	)
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "nozzectl",
		Short: "Administer a nozze wedding plan from the command line",
		Long: `nozzectl works directly on the nozze SQLite database.

Available commands:
  migrate  - Apply pending schema migrations
  seating  - Plan or run automatic seat assignment
  budget   - Record payments and print budget summaries`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			if dbPath != "" {
				a.cfg.SQLiteDBPath = dbPath
			}
			if verbose {
				a.cfg.LogLevel = "debug"
			}
			a.logger = cli.SetupLoggerTo(a.cfg, log.ComponentCLI, cmd.ErrOrStderr())

			repo, err := cli.OpenStorage(a.logger, a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			a.repo = repo

			// Keep the publisher a nil interface unless a client connected.
			var publisher services.SyncPublisher
			if a.cfg.AMQPURL != "" && !noPublish {
				client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
				if err != nil {
					a.logger.Warn("AMQP unavailable, changes will be exported by the periodic pass", log.FieldError, err)
				} else {
					a.amqp = client
					publisher = client
				}
			}

			m := metrics.New()
			a.seating = services.NewSeatingService(repo, publisher, m)
			a.budget = services.NewBudgetService(repo, publisher, m)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noPublish, "no-publish", false, "Do not send sync messages to the export worker")

	rootCmd.AddCommand(newMigrateCmd(a))
	rootCmd.AddCommand(newSeatingCmd(a))
	rootCmd.AddCommand(newBudgetCmd(a))
	return rootCmd, a.close
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the repository already migrated; report where it landed.
			v, dirty, err := storage.MigrationVersion(a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			if dirty {
				return fmt.Errorf("schema version %d is dirty", v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		},
	}
}
