package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_engine",
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by outcome (created, conflict, past_slot, exhausted, error).",
		},
		[]string{"outcome"},
	)

	retryAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_engine",
			Name:      "booking_retry_attempts_total",
			Help:      "Transient-failure retries of the booking transaction.",
		},
	)

	messagesRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_engine",
			Name:      "messages_rendered_total",
			Help:      "Outbound interactive messages by card format.",
		},
		[]string{"format"},
	)

	webhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_engine",
			Name:      "webhook_requests_total",
			Help:      "Webhook/API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "booking_engine",
			Name:      "booking_transaction_seconds",
			Help:      "Wall time of the booking transaction including retries.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingAttempts, retryAttempts, messagesRendered, webhookRequests, bookingDuration)
	})
}

func IncBookingAttempt(outcome string) {
	bookingAttempts.WithLabelValues(outcome).Inc()
}

func IncRetry() {
	retryAttempts.Inc()
}

func IncMessageRendered(format string) {
	messagesRendered.WithLabelValues(format).Inc()
}

func IncWebhook(endpoint string) {
	webhookRequests.WithLabelValues(endpoint).Inc()
}

func ObserveBookingDuration(seconds float64) {
	bookingDuration.Observe(seconds)
}
