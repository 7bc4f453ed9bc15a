package queue

// Status is the connection state of a Client.
type Status int32

const (
	// StatusDisconnected means there is no live connection right now. After a
	// successful start this is transient: the connection reconnects itself.
	StatusDisconnected Status = iota
	// StatusConnected means publish and subscribe go to the broker.
	StatusConnected
	// StatusRetrying means a startup connection attempt failed and another
	// one is scheduled.
	StatusRetrying
	// StatusFailed means startup gave up; the queue feature is disabled for
	// the lifetime of the process.
	StatusFailed
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	case StatusRetrying:
		return "retrying"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
