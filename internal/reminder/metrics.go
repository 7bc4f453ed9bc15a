package reminder

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "taskreminder"

// Scan results recorded by the scheduler.
const (
	scanResultOK           = "ok"
	scanResultStorageError = "storage_error"
	scanResultError        = "error"
	scanResultPanic        = "panic"
)

// Consume outcomes recorded by the consumer.
const (
	consumeOutcomeAcked     = "acked"
	consumeOutcomeMalformed = "malformed"
	consumeOutcomeFailed    = "failed"
	consumeOutcomeDiscarded = "discarded"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	scans           *prometheus.CounterVec
	published       prometheus.Counter
	publishFailures prometheus.Counter
	consumed        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests and one-shot commands want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scans_total",
			Help:      "Overdue scans run by the scheduler, by result.",
		}, []string{"result"}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reminders_published_total",
			Help:      "Reminder messages published to the queue.",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reminders_publish_failures_total",
			Help:      "Reminder messages that could not be published.",
		}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reminders_consumed_total",
			Help:      "Reminder deliveries handled by the consumer, by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.scans, m.published, m.publishFailures, m.consumed)
	}
	return m
}

// RegisterQueueStatus exposes connected as a 0/1 gauge.
func RegisterQueueStatus(reg prometheus.Registerer, connected func() bool) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "queue_connected",
		Help:      "Whether the message broker connection is up.",
	}, func() float64 {
		if connected() {
			return 1
		}
		return 0
	}))
}

func (m *Metrics) scan(result string) {
	m.scans.WithLabelValues(result).Inc()
}

func (m *Metrics) consume(outcome string) {
	m.consumed.WithLabelValues(outcome).Inc()
}
