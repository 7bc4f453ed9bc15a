package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeTransport records traffic instead of talking to a broker.
type fakeTransport struct {
	mu         sync.Mutex
	published  []Message
	publishErr error
	consumeErr error
	stopErr    error
	closeErr   error
	handlers   map[string]func(delivery)
	stopped    map[string]int
	stopCalls  int
	closeCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers: make(map[string]func(delivery)),
		stopped:  make(map[string]int),
	}
}

func (f *fakeTransport) publish(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeTransport) consume(_ context.Context, queue string, deliver func(delivery)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	f.handlers[queue] = deliver
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped[queue]++
		delete(f.handlers, queue)
	}, nil
}

func (f *fakeTransport) stopConsumers() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func (f *fakeTransport) closeConn() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return f.closeErr
}

// deliver hands msg to the consumer registered for queue.
func (f *fakeTransport) deliver(queue string, d *fakeDelivery) bool {
	f.mu.Lock()
	h, ok := f.handlers[queue]
	f.mu.Unlock()
	if !ok {
		return false
	}
	h(d)
	return true
}

func (f *fakeTransport) publishedMessages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.published...)
}

type fakeDelivery struct {
	msg   Message
	acks  int
	naks  int
	ackFn func() error
}

func (d *fakeDelivery) message() Message { return d.msg }

func (d *fakeDelivery) ack() error {
	d.acks++
	if d.ackFn != nil {
		return d.ackFn()
	}
	return nil
}

func (d *fakeDelivery) nak() error {
	d.naks++
	return nil
}

// scriptedDial fails the first failures attempts, then returns t.
type scriptedDial struct {
	mu       sync.Mutex
	failures int
	attempts int
	t        *fakeTransport
	hooks    connHooks
	timeouts []time.Duration
}

var errDialRefused = errors.New("dial tcp 127.0.0.1:4222: connect: connection refused")

func (s *scriptedDial) dial(ctx context.Context, _ Config, policy RetryPolicy, hooks connHooks) (transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.hooks = hooks
	s.timeouts = append(s.timeouts, policy.AttemptTimeout)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("attempt without deadline")
	}
	if s.attempts <= s.failures {
		return nil, errDialRefused
	}
	return s.t, nil
}

// recordingSleep records waits without sleeping.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	if r.err != nil {
		return r.err
	}
	return ctx.Err()
}
