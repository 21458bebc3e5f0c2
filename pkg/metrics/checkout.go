package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records settlement outcomes and fulfillment health.
type CheckoutMetrics struct {
	gatewayDuration *prometheus.HistogramVec
	settlements     *prometheus.CounterVec
	fulfillFailures *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_request_duration_seconds",
		Help:    "Duration of payment gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_settlements_total",
		Help: "Settled payment verifications by outcome.",
	}, []string{"outcome"})
	fulfillFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_step_failures_total",
		Help: "Failed fulfillment side effects by step.",
	}, []string{"step"})
	reg.MustRegister(gatewayDuration, settlements, fulfillFailures)
	return &CheckoutMetrics{
		gatewayDuration: gatewayDuration,
		settlements:     settlements,
		fulfillFailures: fulfillFailures,
	}
}

// ObserveGatewayDuration records the duration of one gateway call.
func (c *CheckoutMetrics) ObserveGatewayDuration(operation string, duration time.Duration) {
	if c == nil || c.gatewayDuration == nil {
		return
	}
	c.gatewayDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSettlement increments the settlement counter for the given outcome.
func (c *CheckoutMetrics) IncSettlement(outcome string) {
	if c == nil || c.settlements == nil {
		return
	}
	c.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncFulfillmentFailure increments the failure counter for the named step.
func (c *CheckoutMetrics) IncFulfillmentFailure(step string) {
	if c == nil || c.fulfillFailures == nil {
		return
	}
	c.fulfillFailures.WithLabelValues(normalizeLabel(step)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
