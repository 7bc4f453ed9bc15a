package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// MinScanInterval is the shortest allowed delay between two overdue scans.
// The scheduler enforces it as well.
const MinScanInterval = time.Minute

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
}

// ServerConfig contains the ops HTTP server and logging settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// QueueConfig contains the message broker settings.
type QueueConfig struct {
	Host string `mapstructure:"host" validate:"required,hostname|ip"`
	Port int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	Name string `mapstructure:"name" validate:"required,excludesall=*>"`

	// LocalMode switches connection handling to a single short attempt and
	// disables reminders for the run when the broker is not reachable.
	LocalMode bool `mapstructure:"local_mode"`

	// ReconnectWaitSeconds is the pause between automatic reconnect attempts
	// after the connection drops mid-run.
	ReconnectWaitSeconds int `mapstructure:"reconnect_wait_seconds" validate:"gte=1"`
}

// URL returns the broker URL derived from host and port.
func (q QueueConfig) URL() string {
	return "nats://" + net.JoinHostPort(q.Host, strconv.Itoa(q.Port))
}

// ReconnectWait returns ReconnectWaitSeconds as a duration.
func (q QueueConfig) ReconnectWait() time.Duration {
	return time.Duration(q.ReconnectWaitSeconds) * time.Second
}

// ReminderConfig contains overdue scan settings.
type ReminderConfig struct {
	// IntervalMinutes is the delay between scans. Values below one are raised to one.
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// Interval returns the scan interval with the one minute floor applied.
func (r ReminderConfig) Interval() time.Duration {
	d := time.Duration(r.IntervalMinutes) * time.Minute
	if d < MinScanInterval {
		return MinScanInterval
	}
	return d
}

// String implements fmt.Stringer without exposing credentials.
func (c *Config) String() string {
	return fmt.Sprintf("server.port=%d server.log_level=%s queue=%s queue.name=%s queue.local_mode=%t reminder.interval=%s",
		c.Server.Port, c.Server.LogLevel, c.Queue.URL(), c.Queue.Name, c.Queue.LocalMode, c.Reminder.Interval())
}
