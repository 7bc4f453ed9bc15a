package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/taskreminder/internal/config"
	"github.com/phrazzld/taskreminder/internal/domain"
	"github.com/phrazzld/taskreminder/internal/queue"
	"github.com/phrazzld/taskreminder/internal/redact"
	"github.com/phrazzld/taskreminder/internal/store"
	"github.com/robfig/cron/v3"
)

// State is the lifecycle state of a Scheduler.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// OverdueScanner runs one overdue scan.
type OverdueScanner interface {
	Scan(ctx context.Context, now time.Time) ([]domain.ReminderMessage, error)
}

// Subscriber starts consuming a queue.
type Subscriber interface {
	Subscribe(ctx context.Context, queue string, h queue.Handler) (func(), error)
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Queue is the queue the consumer subscribes to.
	Queue string
	// Interval is the gap between scans; values below config.MinScanInterval
	// are raised to it.
	Interval time.Duration
}

// Scheduler owns the reminder consumer and runs the overdue scan on a fixed
// cadence until its context is cancelled. Failures inside an iteration are
// logged and never end the loop.
type Scheduler struct {
	scanner    OverdueScanner
	subscriber Subscriber
	handler    queue.Handler
	queueName  string
	logger     *slog.Logger
	metrics    *Metrics

	schedule cron.Schedule
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler. handler is subscribed to cfg.Queue when
// the scheduler starts.
func NewScheduler(
	scanner OverdueScanner,
	subscriber Subscriber,
	handler queue.Handler,
	cfg SchedulerConfig,
	logger *slog.Logger,
	metrics *Metrics,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	interval := cfg.Interval
	if interval < config.MinScanInterval {
		interval = config.MinScanInterval
	}

	return &Scheduler{
		scanner:    scanner,
		subscriber: subscriber,
		handler:    handler,
		queueName:  cfg.Queue,
		logger:     logger.With("component", "scheduler", "interval", interval.String()),
		metrics:    metrics,
		schedule:   cron.Every(interval),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// Run subscribes the consumer and then scans, waits and repeats until ctx is
// cancelled. A consumer that could not be subscribed is retried after each
// wait. The consumer is stopped as soon as cancellation is signalled.
func (s *Scheduler) Run(ctx context.Context) {
	s.setState(StateStarting)
	s.logger.Info("scheduler starting", "queue", s.queueName)

	sub := &consumerSubscription{}
	s.subscribe(ctx, sub)
	stopAfter := context.AfterFunc(ctx, sub.stop)
	defer func() {
		stopAfter()
		s.setState(StateStopping)
		sub.stop()
		s.setState(StateStopped)
		s.logger.Info("scheduler stopped")
	}()

	s.setState(StateRunning)
	for ctx.Err() == nil {
		s.runOnce(ctx)

		now := s.now()
		wait := s.schedule.Next(now).Sub(now)
		if err := s.sleep(ctx, wait); err != nil {
			return
		}
		s.subscribe(ctx, sub)
	}
}

// consumerSubscription is the consumer's subscription for one Run.
type consumerSubscription struct {
	mu       sync.Mutex
	cancel   func()
	stopped  bool
	disabled bool
	failures int
}

// stop ends the subscription, if any, and prevents further attempts. It is
// safe to call more than once.
func (sub *consumerSubscription) stop() {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.stopped {
		return
	}
	sub.stopped = true
	if sub.cancel != nil {
		sub.cancel()
	}
}

// subscribe starts the consumer unless it is already running, stopped, or
// the queue is off for this run. A queue that is down does not prevent
// scanning.
func (s *Scheduler) subscribe(ctx context.Context, sub *consumerSubscription) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.stopped || sub.disabled || sub.cancel != nil {
		return
	}

	cancel, err := s.subscriber.Subscribe(ctx, s.queueName, s.handler)
	switch {
	case err == nil:
		sub.cancel = cancel
		if sub.failures > 0 {
			s.logger.Info("reminder consumer started", "queue", s.queueName, "attempts", sub.failures+1)
		}
	case errors.Is(err, queue.ErrDisabled), errors.Is(err, queue.ErrClosed):
		// Disabled was announced once by the queue client.
		sub.disabled = true
	default:
		sub.failures++
		s.logger.Warn("reminder consumer not started, retrying after the next scan",
			"queue", s.queueName,
			"attempt", sub.failures,
			"error", redact.Error(err))
	}
}

// runOnce performs one scan and absorbs every failure.
func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.scan(scanResultPanic)
			s.logger.Error("overdue scan failed", "panic", fmt.Sprint(r))
		}
	}()

	_, err := s.scanner.Scan(ctx, s.now())
	if err == nil {
		s.metrics.scan(scanResultOK)
		return
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		s.logger.Debug("overdue scan interrupted by shutdown")
		return
	}

	if storeErr, ok := store.AsStoreError(err); ok {
		s.metrics.scan(scanResultStorageError)
		msg := "overdue scan failed: storage error"
		if store.IsSchemaMismatch(err) {
			msg = "overdue scan failed: storage error, possible schema mismatch"
		}
		s.logger.Error(msg,
			"entity", storeErr.Entity,
			"operation", storeErr.Operation,
			"error", redact.Error(err))
		return
	}

	s.metrics.scan(scanResultError)
	s.logger.Error("overdue scan failed", "error", redact.Error(err))
}

// Start runs the scheduler in a goroutine. Calling Start again while it is
// running has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop cancels a scheduler started with Start and waits for it to finish.
// It is safe to call more than once, and before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
