package queue

import (
	"fmt"
	"strings"
)

// Subject hierarchy for queue-to-NATS mapping.
//
//	reminders.queue.{name}  -- messages published to a queue
//	stream REMINDERS_{NAME} -- one work-queue stream per queue
//	consumer {name}-worker  -- shared durable consumer per queue
const SubjectPrefix = "reminders"

// QueueSubject returns the subject messages for queue are published to.
// Example: reminders.queue.Reminder
func QueueSubject(queue string) string {
	return fmt.Sprintf("%s.queue.%s", SubjectPrefix, queue)
}

// StreamName returns the JetStream stream name for a queue.
// Stream names may not contain '.', '*', '>', path separators or whitespace.
// Example: REMINDERS_REMINDER
func StreamName(queue string) string {
	return strings.ToUpper(SubjectPrefix) + "_" + strings.ToUpper(sanitize(queue))
}

// ConsumerName returns the durable consumer name for a queue.
// Example: Reminder-worker
func ConsumerName(queue string) string {
	return sanitize(queue) + "-worker"
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', '/', '\\', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, name)
}
