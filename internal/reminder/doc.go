// Package reminder implements the overdue-task reminder pipeline: a Scanner
// that publishes one ReminderMessage per assignment of every overdue task, a
// Consumer that processes those messages off the queue, and a Scheduler that
// ties both to a fixed cadence for the lifetime of the process.
package reminder
