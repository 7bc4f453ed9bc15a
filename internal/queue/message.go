package queue

import "context"

// Message is a delivered or to-be-published broker message.
type Message struct {
	Queue   string
	Payload []byte
	Headers map[string]string

	// Delivered is how many times the broker has handed this message out,
	// starting at 1. Zero when unknown.
	Delivered uint64
}

// Header returns the value of a header, or "" when absent.
func (m Message) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}

// Handler processes one delivery. Returning true acknowledges the message;
// false negatively acknowledges it so the broker redelivers it.
type Handler func(ctx context.Context, msg Message) bool
