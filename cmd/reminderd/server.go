package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Run starts the scheduler and the ops HTTP server and blocks until ctx is
// cancelled or the server fails. Resources are released before it returns.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	app.scheduler.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting ops server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			app.logger.Error("ops server failed", "error", err)
			runErr = fmt.Errorf("ops server: %w", err)
		}
	}

	shutdownCtx, cancel := withoutCancel(ctx, shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("ops server shutdown failed", "error", err)
	}
	return runErr
}
