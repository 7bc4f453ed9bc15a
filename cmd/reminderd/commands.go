package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/taskreminder/internal/config"
	"github.com/phrazzld/taskreminder/internal/platform/logger"
	"github.com/phrazzld/taskreminder/internal/platform/postgres"
	"github.com/phrazzld/taskreminder/internal/queue"
	"github.com/phrazzld/taskreminder/internal/reminder"
	"github.com/spf13/cobra"
)

// migrateCommands are the goose commands exposed by "reminderd migrate".
var migrateCommands = []string{"up", "down", "status", "version"}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reminderd",
		Short: "Overdue task reminder worker",
		Long: `reminderd periodically scans the task database for tasks that are due,
publishes one reminder per assigned user to the message queue, and consumes
those reminders from the same queue.

Configuration is read from config.yaml in the working directory and from
REMINDER_* environment variables.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(), newScanCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler, the reminder consumer and the ops HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, log, err := loadAppConfig()
			if err != nil {
				return err
			}

			db, err := setupAppDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}

			q := queue.New(ctx, queueConfig(cfg), log)

			app := newApplication(cfg, log, db, q)
			return app.Run(ctx)
		},
	}
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a single overdue scan and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, log, err := loadAppConfig()
			if err != nil {
				return err
			}

			db, err := setupAppDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeDatabase(db, log)

			q := queue.New(ctx, queueConfig(cfg), log)
			defer func() { _ = q.Close() }()

			scanner := reminder.NewScanner(
				postgres.NewPostgresTaskStore(db, log),
				q,
				cfg.Queue.Name,
				log,
				nil,
			)

			published, err := scanner.Scan(ctx, time.Now())
			if err != nil {
				return fmt.Errorf("overdue scan failed: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "published %d reminder(s)\n", len(published))
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate {up|down|status|version}",
		Short:     "Apply or inspect database schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrateCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, log, err := loadAppConfig()
			if err != nil {
				return err
			}

			db, err := setupAppDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeDatabase(db, log)

			return postgres.Migrate(ctx, db, log, args[0])
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reminderd %s\ncommit: %s\nbuilt:  %s\n", version, commit, date)
		},
	}
}

// loadAppConfig loads configuration and sets up the process logger from it.
func loadAppConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded", "config", cfg.String())
	return cfg, log, nil
}

func queueConfig(cfg *config.Config) queue.Config {
	hostname, _ := os.Hostname()
	return queue.Config{
		URL:           cfg.Queue.URL(),
		ClientName:    "reminderd@" + hostname,
		LocalMode:     cfg.Queue.LocalMode,
		ReconnectWait: cfg.Queue.ReconnectWait(),
	}
}

// withoutCancel is used for teardown work that must outlive the run context.
func withoutCancel(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
