package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskreminder/internal/domain"
	"github.com/phrazzld/taskreminder/internal/queue"
	"github.com/phrazzld/taskreminder/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// fakeTaskStore serves tasks from memory, applying the due-date filter
// the real query applies.
type fakeTaskStore struct {
	mu       sync.Mutex
	tasks    []domain.Task
	findErr  error
	countErr error
	calls    int
}

func (f *fakeTaskStore) FindDueTasks(_ context.Context, before time.Time) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	var due []domain.Task
	for _, task := range f.tasks {
		if task.IsOverdue(before) {
			due = append(due, task)
		}
	}
	return due, nil
}

func (f *fakeTaskStore) CountTasks(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.tasks), nil
}

func (f *fakeTaskStore) WithTx(*sql.Tx) store.TaskStore { return f }

type publishedMessage struct {
	queue   string
	payload []byte
	headers map[string]string
}

// fakePublisher records publishes; errFor picks a per-call error.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	errFor    func(n int) error
	calls     int
}

func (f *fakePublisher) Publish(_ context.Context, q string, payload []byte, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.errFor != nil {
		if err := f.errFor(f.calls); err != nil {
			return err
		}
	}
	f.published = append(f.published, publishedMessage{queue: q, payload: payload, headers: headers})
	return nil
}

// fakeSubscriber records subscriptions and how often they were stopped.
// errFor, when set, picks the error for the nth attempt instead of err.
type fakeSubscriber struct {
	mu        sync.Mutex
	err       error
	errFor    func(n int) error
	attempts  int
	queues    []string
	handler   queue.Handler
	stopCalls int
	events    *[]string
}

func (f *fakeSubscriber) Subscribe(_ context.Context, q string, h queue.Handler) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.events != nil {
		*f.events = append(*f.events, "subscribe")
	}
	err := f.err
	if f.errFor != nil {
		err = f.errFor(f.attempts)
	}
	if err != nil {
		return func() {}, err
	}
	f.queues = append(f.queues, q)
	f.handler = h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopCalls++
		if f.events != nil {
			*f.events = append(*f.events, "stop")
		}
	}, nil
}

func (f *fakeSubscriber) subscribeAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeSubscriber) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

// scanFunc adapts a function to OverdueScanner.
type scanFunc func(ctx context.Context, now time.Time) ([]domain.ReminderMessage, error)

func (f scanFunc) Scan(ctx context.Context, now time.Time) ([]domain.ReminderMessage, error) {
	return f(ctx, now)
}

// sequentialIDs returns id-1, id-2, ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func user(id int64, name string) domain.User {
	return domain.User{ID: id, Name: name, Email: name + "@example.com"}
}
