package queue

import "time"

// RetryPolicy bounds how the client connects at startup.
type RetryPolicy struct {
	// MaxAttempts is the total number of connection attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failed attempt; it doubles after
	// each further failure.
	BaseDelay time.Duration
	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration
	// AttemptTimeout bounds a single connection attempt.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy makes five attempts, waiting 2s, 4s, 8s and 16s in between.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		BaseDelay:      2 * time.Second,
		MaxDelay:       16 * time.Second,
		AttemptTimeout: 10 * time.Second,
	}
}

// LocalRetryPolicy makes a single short attempt. It is used in local mode,
// where a missing broker should not hold up startup.
func LocalRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    1,
		AttemptTimeout: 3 * time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}

	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Schedule lists every wait the policy will perform before giving up.
func (p RetryPolicy) Schedule() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}
	waits := make([]time.Duration, 0, p.MaxAttempts-1)
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		waits = append(waits, p.Delay(attempt))
	}
	return waits
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = DefaultRetryPolicy().AttemptTimeout
	}
	return p
}
