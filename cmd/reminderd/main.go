// Package main implements reminderd, the background worker that scans for
// overdue tasks and delivers reminders for them through the message queue.
package main

import (
	"fmt"
	"os"
)

// Set by ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
