package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the payment lifecycle
type Metrics struct {
	PaymentsStarted prometheus.Counter
	PaymentFailures *prometheus.CounterVec
	StatusChecks    prometheus.Counter
	Refunds         prometheus.Counter
}

// NewMetrics registers the lifecycle metrics with the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PaymentsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "payflow_payments_started_total",
			Help: "Payments successfully started at a gateway.",
		}),
		PaymentFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payflow_payment_failures_total",
			Help: "Payment lifecycle failures by stage.",
		}, []string{"stage"}),
		StatusChecks: factory.NewCounter(prometheus.CounterOpts{
			Name: "payflow_status_checks_total",
			Help: "Gateway status checks performed.",
		}),
		Refunds: factory.NewCounter(prometheus.CounterOpts{
			Name: "payflow_refunds_total",
			Help: "Refunds successfully created.",
		}),
	}
}
