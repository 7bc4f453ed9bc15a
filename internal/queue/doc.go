// Package queue owns the process-wide connection to the message broker.
//
// A Client is constructed once at startup, tries to connect according to a
// RetryPolicy, and then exposes Publish and Subscribe. When the broker is not
// reachable the client degrades instead of failing: Publish and Subscribe
// return ErrBrokerUnavailable (or ErrDisabled when the feature was switched
// off at startup) and the rest of the process keeps running. After a
// successful start the underlying NATS connection reconnects on its own and
// the client tracks the connected state through connection callbacks.
//
// Messages travel over NATS JetStream. Every queue name maps to one subject,
// one memory-backed work-queue stream and one shared explicit-ack consumer,
// so a handler returning false causes the broker to redeliver the message.
package queue
