package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotshare_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spotshare_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotshare_booking_transitions_total",
			Help: "Booking status transitions by target status and trigger",
		},
		[]string{"status", "trigger"},
	)

	AvailabilityRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotshare_availability_rejections_total",
			Help: "Booking requests refused by the availability check",
		},
		[]string{"reason"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotshare_settlements_total",
			Help: "Ledger operations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	SettledAmountCents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotshare_settled_amount_cents_total",
			Help: "Money moved by the ledger in cents",
		},
		[]string{"kind"},
	)

	PlatformFeesCents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spotshare_platform_fees_cents_total",
			Help: "Platform fees collected in cents",
		},
	)

	SchedulerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotshare_scheduler_runs_total",
			Help: "Scheduler passes by result",
		},
		[]string{"result"},
	)

	SchedulerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotshare_scheduler_transitions_total",
			Help: "Transitions applied by the scheduler",
		},
		[]string{"action"},
	)

	SchedulerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spotshare_scheduler_run_duration_seconds",
			Help:    "Duration of a scheduler pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotshare_events_published_total",
			Help: "Change events published by type and status",
		},
		[]string{"type", "status"},
	)

	PaymentConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotshare_payment_confirmations_total",
			Help: "Gateway payment confirmations by source and outcome",
		},
		[]string{"source", "outcome"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBookingTransition(status, trigger string) {
	BookingTransitionsTotal.WithLabelValues(status, trigger).Inc()
}

func RecordAvailabilityRejection(reason string) {
	AvailabilityRejectionsTotal.WithLabelValues(reason).Inc()
}

func RecordSettlement(kind, outcome string, amountCents, feeCents int64) {
	SettlementsTotal.WithLabelValues(kind, outcome).Inc()
	if outcome != "ok" {
		return
	}
	SettledAmountCents.WithLabelValues(kind).Add(float64(amountCents))
	if feeCents > 0 {
		PlatformFeesCents.Add(float64(feeCents))
	}
}

func RecordSchedulerRun(result string, seconds float64) {
	SchedulerRunsTotal.WithLabelValues(result).Inc()
	SchedulerRunDuration.Observe(seconds)
}

func RecordSchedulerTransition(action string) {
	SchedulerTransitionsTotal.WithLabelValues(action).Inc()
}

func RecordEvent(eventType, status string) {
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

func RecordPaymentConfirmation(source, outcome string) {
	PaymentConfirmationsTotal.WithLabelValues(source, outcome).Inc()
}
