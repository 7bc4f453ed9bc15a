package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// ackWait is how long the broker waits for an ack before redelivering.
	ackWait = 30 * time.Second
	// flushTimeout bounds the final flush on shutdown.
	flushTimeout = 2 * time.Second
	// restoreAttempts and restoreTimeout bound the rebuild of streams and
	// consumers after a reconnect.
	restoreAttempts = 5
	restoreTimeout  = 10 * time.Second
)

// natsTransport implements transport on NATS JetStream.
type natsTransport struct {
	nc *nats.Conn
	js jetstream.JetStream
	// ready is closed once nc and js are set.
	ready chan struct{}

	streams sync.Map // map[string]struct{}: queues whose stream exists

	mu        sync.Mutex
	consumers map[*natsConsumer]struct{}
}

// natsConsumer is one active subscription. It outlives the JetStream consumer
// it runs on, which is recreated after a server restart.
type natsConsumer struct {
	queue   string
	deliver func(delivery)

	mu      sync.Mutex
	cc      jetstream.ConsumeContext
	stopped bool
}

func (c *natsConsumer) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.cc != nil {
		c.cc.Stop()
		c.cc = nil
	}
}

// dialNATS connects to the broker. The connection reconnects forever after a
// successful start; hooks keep the client's connected flag in sync.
func dialNATS(ctx context.Context, cfg Config, policy RetryPolicy, hooks connHooks) (transport, error) {
	t := &natsTransport{
		ready:     make(chan struct{}),
		consumers: make(map[*natsConsumer]struct{}),
	}

	opts := []nats.Option{
		nats.Name(cfg.ClientName),
		nats.Timeout(policy.AttemptTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			hooks.onDisconnect(err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			// Memory streams and their consumers are gone if the server restarted.
			t.streams.Clear()
			hooks.onReconnect()
			go t.restoreAfterReconnect(cfg.ReconnectWait, hooks)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			hooks.onClosed()
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	// Fail the attempt early if JetStream is not enabled on the server.
	if _, err := js.AccountInfo(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("checking JetStream availability: %w", err)
	}

	t.nc, t.js = nc, js
	close(t.ready)
	return t, nil
}

// ensureStream creates the queue's stream once per connection.
func (t *natsTransport) ensureStream(ctx context.Context, queue string) error {
	if _, ok := t.streams.Load(queue); ok {
		return nil
	}

	_, err := t.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName(queue),
		Subjects:  []string{QueueSubject(queue)},
		Storage:   jetstream.MemoryStorage,
		Retention: jetstream.WorkQueuePolicy,
		Discard:   jetstream.DiscardOld,
	})
	if err != nil {
		return fmt.Errorf("creating stream %s: %w", StreamName(queue), err)
	}

	t.streams.Store(queue, struct{}{})
	return nil
}

func (t *natsTransport) publish(ctx context.Context, msg Message) error {
	if err := t.ensureStream(ctx, msg.Queue); err != nil {
		return err
	}

	m := nats.NewMsg(QueueSubject(msg.Queue))
	m.Data = msg.Payload
	for k, v := range msg.Headers {
		m.Header.Set(k, v)
	}

	_, err := t.js.PublishMsg(ctx, m)
	if errors.Is(err, jetstream.ErrNoStreamResponse) {
		// The stream vanished behind the cache; recreate it and try once more.
		t.streams.Delete(msg.Queue)
		if err := t.ensureStream(ctx, msg.Queue); err != nil {
			return err
		}
		_, err = t.js.PublishMsg(ctx, m)
	}
	if err != nil {
		return fmt.Errorf("publish to %s: %w", m.Subject, err)
	}
	return nil
}

func (t *natsTransport) consume(ctx context.Context, queue string, deliver func(delivery)) (func(), error) {
	c := &natsConsumer{queue: queue, deliver: deliver}
	if err := t.start(ctx, c); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.consumers[c] = struct{}{}
	t.mu.Unlock()

	return func() {
		c.stop()
		t.mu.Lock()
		delete(t.consumers, c)
		t.mu.Unlock()
	}, nil
}

// start creates the stream and durable consumer for c and begins consuming,
// replacing any previous consume context.
func (t *natsTransport) start(ctx context.Context, c *natsConsumer) error {
	if err := t.ensureStream(ctx, c.queue); err != nil {
		return err
	}

	consumer, err := t.js.CreateOrUpdateConsumer(ctx, StreamName(c.queue), jetstream.ConsumerConfig{
		Durable:       ConsumerName(c.queue),
		FilterSubject: QueueSubject(c.queue),
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    -1,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("creating consumer for queue %s: %w", c.queue, err)
	}

	cc, err := consumer.Consume(func(m jetstream.Msg) {
		c.deliver(natsDelivery{queue: c.queue, msg: m})
	})
	if err != nil {
		return fmt.Errorf("starting consumer for queue %s: %w", c.queue, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		cc.Stop()
		return nil
	}
	if c.cc != nil {
		c.cc.Stop()
	}
	c.cc = cc
	return nil
}

// restore recreates the stream and consumer of every active subscription.
func (t *natsTransport) restore(ctx context.Context) error {
	t.mu.Lock()
	consumers := make([]*natsConsumer, 0, len(t.consumers))
	for c := range t.consumers {
		consumers = append(consumers, c)
	}
	t.mu.Unlock()

	var errs []error
	for _, c := range consumers {
		if err := t.start(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *natsTransport) restoreAfterReconnect(wait time.Duration, hooks connHooks) {
	<-t.ready

	for attempt := 1; attempt <= restoreAttempts; attempt++ {
		if t.nc.IsClosed() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		err := t.restore(ctx)
		cancel()
		if err == nil {
			return
		}

		hooks.onRestoreFailed(attempt, err)
		if attempt < restoreAttempts {
			time.Sleep(wait)
		}
	}
}

func (t *natsTransport) stopConsumers() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for c := range t.consumers {
		c.stop()
		delete(t.consumers, c)
	}
	return nil
}

func (t *natsTransport) closeConn() error {
	// The connection is closed even when the flush fails.
	defer t.nc.Close()

	if t.nc.IsClosed() {
		return nil
	}
	if err := t.nc.FlushTimeout(flushTimeout); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("flushing connection: %w", err)
	}
	return nil
}

// natsDelivery adapts a JetStream message to delivery.
type natsDelivery struct {
	queue string
	msg   jetstream.Msg
}

func (d natsDelivery) message() Message {
	headers := make(map[string]string, len(d.msg.Headers()))
	for k := range d.msg.Headers() {
		headers[k] = d.msg.Headers().Get(k)
	}

	var delivered uint64
	if meta, err := d.msg.Metadata(); err == nil {
		delivered = meta.NumDelivered
	}

	return Message{
		Queue:     d.queue,
		Payload:   d.msg.Data(),
		Headers:   headers,
		Delivered: delivered,
	}
}

func (d natsDelivery) ack() error { return d.msg.Ack() }

func (d natsDelivery) nak() error { return d.msg.Nak() }
