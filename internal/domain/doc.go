// Package domain contains the core business entities of the reminder pipeline:
// tasks, their user assignments, and the reminder message that is published for
// every overdue assignment. It is independent of storage and transport details.
package domain
