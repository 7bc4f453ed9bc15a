package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/taskreminder/internal/redact"
)

// Config holds what the client needs to reach the broker.
type Config struct {
	// URL is the broker URL, e.g. nats://localhost:4222.
	URL string
	// ClientName identifies this process to the broker.
	ClientName string
	// LocalMode selects LocalRetryPolicy when Retry is left zero.
	LocalMode bool
	// ReconnectWait is the pause between automatic reconnects after a
	// connection drop. Defaults to 10s.
	ReconnectWait time.Duration
	// Retry overrides the startup retry policy.
	Retry RetryPolicy
}

func (c Config) retryPolicy() RetryPolicy {
	if c.Retry.MaxAttempts > 0 {
		return c.Retry.normalized()
	}
	if c.LocalMode {
		return LocalRetryPolicy()
	}
	return DefaultRetryPolicy()
}

// connHooks lets the transport report connection state changes.
type connHooks struct {
	onDisconnect func(err error)
	onReconnect  func()
	onClosed     func()

	// onRestoreFailed reports a failed attempt to rebuild streams and
	// consumers after a reconnect.
	onRestoreFailed func(attempt int, err error)
}

// delivery is one message handed out by the transport.
type delivery interface {
	message() Message
	ack() error
	nak() error
}

// transport is the broker-specific half of the client.
type transport interface {
	publish(ctx context.Context, msg Message) error
	consume(ctx context.Context, queue string, deliver func(delivery)) (stop func(), err error)
	// stopConsumers stops every active consumer; it is the first half of teardown.
	stopConsumers() error
	// closeConn flushes and closes the connection.
	closeConn() error
}

type dialFunc func(ctx context.Context, cfg Config, policy RetryPolicy, hooks connHooks) (transport, error)

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// Client is the process-wide broker connection shared by publishers and
// subscribers. All methods are safe for concurrent use.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dial   dialFunc
	sleep  sleepFunc

	status    atomic.Int32
	connected atomic.Bool

	// mu serializes publishes and lifecycle changes on the transport.
	mu        sync.Mutex
	transport transport
	closed    bool
	subs      map[int]*subscription
	nextSubID int
}

type subscription struct {
	once sync.Once
	stop func()
}

// New creates a Client and immediately tries to connect following the
// configured retry policy. It never fails: check Status or Connected to see
// whether the broker is usable.
func New(ctx context.Context, cfg Config, logger *slog.Logger) *Client {
	return newClient(ctx, cfg, logger, dialNATS, sleepContext)
}

func newClient(ctx context.Context, cfg Config, logger *slog.Logger, dial dialFunc, sleep sleepFunc) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 10 * time.Second
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "taskreminder"
	}

	c := &Client{
		cfg:    cfg,
		logger: logger.With("component", "queue_client", "broker", redact.URL(cfg.URL)),
		dial:   dial,
		sleep:  sleep,
		subs:   make(map[int]*subscription),
	}
	c.setStatus(StatusDisconnected)
	c.connect(ctx)
	return c
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	return Status(c.status.Load())
}

// Connected reports whether the client currently has a live connection.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

func (c *Client) setStatus(s Status) {
	c.status.Store(int32(s))
}

// connect runs the startup retry loop and records the outcome.
func (c *Client) connect(ctx context.Context) Status {
	policy := c.cfg.retryPolicy()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		t, err := c.dial(attemptCtx, c.cfg, policy, c.hooks())
		cancel()

		if err == nil {
			c.mu.Lock()
			c.transport = t
			c.mu.Unlock()
			c.connected.Store(true)
			c.setStatus(StatusConnected)
			c.logger.Info("connected to message broker", "attempt", attempt)
			return StatusConnected
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		c.setStatus(StatusRetrying)
		c.logger.Warn("message broker unavailable, retrying",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"retry_in", delay.String(),
			"error", redact.Error(err))

		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	c.setStatus(StatusFailed)
	if c.cfg.LocalMode {
		c.logger.Warn("message broker not reachable in local mode; reminders are disabled for this run",
			"error", redact.Error(lastErr))
	} else {
		c.logger.Error("could not connect to message broker; reminders are disabled for this run",
			"attempts", policy.MaxAttempts,
			"error", redact.Error(lastErr))
	}
	return StatusFailed
}

func (c *Client) hooks() connHooks {
	return connHooks{
		onDisconnect: func(err error) {
			c.connected.Store(false)
			if c.Status() != StatusFailed {
				c.setStatus(StatusDisconnected)
			}
			c.logger.Warn("message broker connection lost, waiting for automatic reconnect",
				"reconnect_wait", c.cfg.ReconnectWait.String(),
				"error", redact.Error(err))
		},
		onReconnect: func() {
			c.connected.Store(true)
			c.setStatus(StatusConnected)
			c.logger.Info("message broker connection restored")
		},
		onClosed: func() {
			c.connected.Store(false)
			if c.Status() == StatusConnected {
				c.setStatus(StatusDisconnected)
			}
			c.logger.Debug("message broker connection closed")
		},
		onRestoreFailed: func(attempt int, err error) {
			c.logger.Warn("could not restore queues after reconnect",
				"attempt", attempt,
				"error", redact.Error(err))
		},
	}
}

// usable reports why the transport cannot be used, if it cannot. Callers hold mu.
func (c *Client) usable() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.transport == nil || c.Status() == StatusFailed:
		return ErrDisabled
	case !c.connected.Load():
		return fmt.Errorf("%w: connection lost", ErrBrokerUnavailable)
	}
	return nil
}

// Publish sends payload to queue with the given headers. When the client is
// not connected it returns ErrBrokerUnavailable without contacting the broker.
func (c *Client) Publish(ctx context.Context, queue string, payload []byte, headers map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return err
	}

	msg := Message{Queue: queue, Payload: payload, Headers: headers}
	if err := c.transport.publish(ctx, msg); err != nil {
		return fmt.Errorf("%w: publish to %s: %v", ErrBrokerUnavailable, queue, err)
	}
	return nil
}

// Subscribe starts consuming queue. Each delivery is passed to h; true acks
// it and false naks it for redelivery. A panicking handler is recovered and
// treated as false. The returned stop function is safe to call repeatedly.
func (c *Client) Subscribe(ctx context.Context, queue string, h Handler) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return func() {}, err
	}

	stopConsume, err := c.transport.consume(ctx, queue, func(d delivery) {
		c.dispatch(ctx, h, d)
	})
	if err != nil {
		return func() {}, fmt.Errorf("%w: subscribe to %s: %v", ErrBrokerUnavailable, queue, err)
	}

	id := c.nextSubID
	c.nextSubID++
	sub := &subscription{}
	sub.stop = func() {
		sub.once.Do(func() {
			stopConsume()
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			c.logger.Info("stopped consuming", "queue", queue)
		})
	}
	c.subs[id] = sub

	c.logger.Info("consuming", "queue", queue)
	return sub.stop, nil
}

// dispatch runs the handler and settles the delivery.
func (c *Client) dispatch(ctx context.Context, h Handler, d delivery) {
	msg := d.message()

	if c.invoke(ctx, h, msg) {
		if err := d.ack(); err != nil {
			c.logger.Warn("failed to acknowledge message", "queue", msg.Queue, "error", err)
		}
		return
	}

	if err := d.nak(); err != nil {
		c.logger.Warn("failed to negatively acknowledge message", "queue", msg.Queue, "error", err)
	}
}

func (c *Client) invoke(ctx context.Context, h Handler, msg Message) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message handler panicked",
				"queue", msg.Queue,
				"panic", fmt.Sprint(r),
				"payload", string(msg.Payload))
			ok = false
		}
	}()
	return h(ctx, msg)
}

// Close stops all consumers and then closes the connection. Teardown is best
// effort: problems are logged, never returned, and the client ends up closed
// either way. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := make([]*subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	t := c.transport
	c.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}

	defer func() {
		c.mu.Lock()
		c.transport = nil
		c.mu.Unlock()
		c.connected.Store(false)
		if c.Status() != StatusFailed {
			c.setStatus(StatusDisconnected)
		}
	}()

	if t == nil {
		return nil
	}

	if err := t.stopConsumers(); err != nil {
		c.logger.Warn("error while stopping consumers", "error", err)
	}
	if err := t.closeConn(); err != nil {
		c.logger.Warn("error while closing broker connection", "error", err)
	}
	c.logger.Info("message broker connection closed")
	return nil
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
