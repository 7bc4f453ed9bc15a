package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/taskreminder/internal/config"
	"github.com/phrazzld/taskreminder/internal/platform/postgres"
	"github.com/phrazzld/taskreminder/internal/queue"
	"github.com/phrazzld/taskreminder/internal/reminder"
	"github.com/phrazzld/taskreminder/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// broker is the part of *queue.Client the application uses.
type broker interface {
	reminder.Publisher
	reminder.Subscriber
	Status() queue.Status
	Connected() bool
	Close() error
}

// pinger reports database reachability for the readiness probe.
type pinger interface {
	PingContext(ctx context.Context) error
}

// application holds the process-wide dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	db       pinger
	closeDB  func()
	broker   broker
	registry *prometheus.Registry

	taskStore store.TaskStore
	scanner   *reminder.Scanner
	consumer  *reminder.Consumer
	scheduler *reminder.Scheduler
}

// newApplication wires the reminder pipeline on top of an open database and
// an already constructed queue client.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB, q broker) *application {
	app := newApplicationWith(cfg, logger, db, postgres.NewPostgresTaskStore(db, logger), q)
	app.closeDB = func() { closeDatabase(db, logger) }
	return app
}

func newApplicationWith(
	cfg *config.Config,
	logger *slog.Logger,
	db pinger,
	tasks store.TaskStore,
	q broker,
) *application {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := reminder.NewMetrics(registry)
	reminder.RegisterQueueStatus(registry, q.Connected)

	scanner := reminder.NewScanner(tasks, q, cfg.Queue.Name, logger, metrics)
	consumer := reminder.NewConsumer(reminder.LogNotifier{}, logger, metrics)
	scheduler := reminder.NewScheduler(scanner, q, consumer.HandleMessage, reminder.SchedulerConfig{
		Queue:    cfg.Queue.Name,
		Interval: cfg.Reminder.Interval(),
	}, logger, metrics)

	return &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		closeDB:   func() {},
		broker:    q,
		registry:  registry,
		taskStore: tasks,
		scanner:   scanner,
		consumer:  consumer,
		scheduler: scheduler,
	}
}

// cleanup stops the scheduler, then the queue client, then the database
// pool. Each step runs even if an earlier one reported a problem.
func (app *application) cleanup() {
	app.scheduler.Stop()

	if err := app.broker.Close(); err != nil {
		app.logger.Warn("error closing queue client", "error", err)
	}

	app.closeDB()
	app.logger.Info("application shutdown completed")
}
