package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	payments      *prometheus.CounterVec
	bankAttempts  *prometheus.CounterVec
	authorization prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "payments_total",
			Help:      "Payment requests by final outcome.",
		}, []string{"status"}),
		bankAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "bank_attempts_total",
			Help:      "Individual authorization attempts sent to the acquiring bank.",
		}, []string{"outcome"}),
		authorization: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "bank_authorization_seconds",
			Help:      "Time spent obtaining an authorization, retries included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}),
	}

	for _, c := range []prometheus.Collector{m.payments, m.bankAttempts, m.authorization} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) CountPayment(status string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveAuthorization(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.authorization.Observe(elapsed.Seconds())
}

// ObserveBankAttempt implements bank.AttemptObserver.
func (m *Metrics) ObserveBankAttempt(outcome string, _ time.Duration) {
	if m == nil {
		return
	}
	m.bankAttempts.WithLabelValues(outcome).Inc()
}

// PaymentsCounter exposes the payments counter for assertions.
func (m *Metrics) PaymentsCounter() *prometheus.CounterVec {
	return m.payments
}
