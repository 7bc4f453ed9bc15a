package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskreminder/internal/config"
	"github.com/phrazzld/taskreminder/internal/domain"
	"github.com/phrazzld/taskreminder/internal/platform/logger"
	"github.com/phrazzld/taskreminder/internal/queue"
	"github.com/phrazzld/taskreminder/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	mu        sync.Mutex
	status    queue.Status
	published int
	closed    int
	stopped   int
}

func (b *fakeBroker) Publish(context.Context, string, []byte, map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != queue.StatusConnected {
		return queue.ErrDisabled
	}
	b.published++
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string, queue.Handler) (func(), error) {
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.stopped++
	}, nil
}

func (b *fakeBroker) Status() queue.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *fakeBroker) Connected() bool { return b.Status() == queue.StatusConnected }

func (b *fakeBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type emptyTaskStore struct{}

func (emptyTaskStore) FindDueTasks(context.Context, time.Time) ([]domain.Task, error) {
	return nil, nil
}
func (emptyTaskStore) CountTasks(context.Context) (int, error) { return 0, nil }
func (s emptyTaskStore) WithTx(*sql.Tx) store.TaskStore { return s }

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 0, LogLevel: "debug"},
		Database: config.DatabaseConfig{URL: "postgres://localhost:5432/tasks"},
		Queue:    config.QueueConfig{Host: "localhost", Port: 4222, Name: "Reminder", ReconnectWaitSeconds: 10},
		Reminder: config.ReminderConfig{IntervalMinutes: 1},
	}
}

func newTestApp(t *testing.T, db pinger, b *fakeBroker) *application {
	t.Helper()
	_, log := logger.NewTestLogger(t)
	return newApplicationWith(testConfig(), log, db, emptyTaskStore{}, b)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, fakePinger{}, &fakeBroker{status: queue.StatusConnected})

	rec := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		status     queue.Status
		wantCode   int
		wantStatus string
		wantQueue  string
	}{
		{"all up", nil, queue.StatusConnected, http.StatusOK, "ok", "connected"},
		{"queue disabled", nil, queue.StatusFailed, http.StatusOK, "degraded", "failed"},
		{"queue reconnecting", nil, queue.StatusDisconnected, http.StatusOK, "degraded", "disconnected"},
		{"database down", errors.New("connection refused"), queue.StatusConnected,
			http.StatusServiceUnavailable, "unavailable", "connected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, fakePinger{err: tt.pingErr}, &fakeBroker{status: tt.status})

			rec := httptest.NewRecorder()
			app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body readiness
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantQueue, body.Queue)
			assert.Equal(t, "idle", body.Scheduler)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, fakePinger{}, &fakeBroker{status: queue.StatusConnected})

	rec := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "taskreminder_queue_connected 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	b := &fakeBroker{status: queue.StatusConnected}
	app := newTestApp(t, fakePinger{}, b)

	dbClosed := false
	app.closeDB = func() { dbClosed = true }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return app.scheduler.State().String() == "running"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.Equal(t, "stopped", app.scheduler.State().String())
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 1, b.stopped, "consumer is stopped before the queue client closes")
	assert.True(t, dbClosed)
}
