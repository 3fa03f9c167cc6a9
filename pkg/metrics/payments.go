package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics tracks settlement polling and payment outcomes.
type PaymentMetrics struct {
	pollAttempts *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	settlements  *prometheus.CounterVec
}

// NewPaymentMetrics registers payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	pollAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_poll_attempts_total",
		Help: "Settlement poll attempts against payment providers.",
	}, []string{"provider"})
	pollDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_poll_duration_seconds",
		Help:    "Total time spent polling a transaction until it resolved.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300},
	}, []string{"provider"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Resolved transactions by provider and outcome.",
	}, []string{"provider", "outcome"})
	reg.MustRegister(pollAttempts, pollDuration, settlements)
	return &PaymentMetrics{
		pollAttempts: pollAttempts,
		pollDuration: pollDuration,
		settlements:  settlements,
	}
}

// IncPollAttempt counts one status check against the named provider.
func (p *PaymentMetrics) IncPollAttempt(provider string) {
	if p == nil || p.pollAttempts == nil {
		return
	}
	p.pollAttempts.WithLabelValues(normalizeLabel(provider)).Inc()
}

// ObservePollDuration records how long a transaction took to resolve.
func (p *PaymentMetrics) ObservePollDuration(provider string, elapsed time.Duration) {
	if p == nil || p.pollDuration == nil {
		return
	}
	p.pollDuration.WithLabelValues(normalizeLabel(provider)).Observe(elapsed.Seconds())
}

// IncSettlement counts a resolved transaction outcome (completed/rejected/timeout).
func (p *PaymentMetrics) IncSettlement(provider, outcome string) {
	if p == nil || p.settlements == nil {
		return
	}
	p.settlements.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}
