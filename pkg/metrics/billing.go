package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sweep record outcomes.
const (
	OutcomeFrozen        = "frozen"
	OutcomeAlreadyFrozen = "already_frozen"
	OutcomeSkipped       = "skipped"
	OutcomeError         = "error"
	OutcomeInconsistent  = "inconsistent"
)

// Period close and checkout outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeNoOp     = "noop"
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
)

// BillingMetrics counts commission engine outcomes.
type BillingMetrics struct {
	sweepRecords     *prometheus.CounterVec
	periodsClosed    *prometheus.CounterVec
	checkoutSessions *prometheus.CounterVec
}

// NewBillingMetrics registers the billing counters on the provided registerer.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	sweepRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_sweep_records_total",
		Help: "Commission payments processed by the overdue sweep, by outcome.",
	}, []string{"outcome"})
	periodsClosed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_periods_closed_total",
		Help: "Billing period close attempts, by outcome.",
	}, []string{"outcome"})
	checkoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_checkout_sessions_total",
		Help: "Checkout sessions requested for commission payments, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(sweepRecords, periodsClosed, checkoutSessions)
	return &BillingMetrics{
		sweepRecords:     sweepRecords,
		periodsClosed:    periodsClosed,
		checkoutSessions: checkoutSessions,
	}
}

// SweepRecord counts one sweep record outcome.
func (b *BillingMetrics) SweepRecord(outcome string) {
	if b == nil || b.sweepRecords == nil {
		return
	}
	b.sweepRecords.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// SweepRecords adds n to the given outcome.
func (b *BillingMetrics) SweepRecords(outcome string, n int) {
	if b == nil || b.sweepRecords == nil || n <= 0 {
		return
	}
	b.sweepRecords.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

// PeriodClosed counts one close-period outcome.
func (b *BillingMetrics) PeriodClosed(outcome string) {
	if b == nil || b.periodsClosed == nil {
		return
	}
	b.periodsClosed.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// CheckoutSession counts one checkout session outcome.
func (b *BillingMetrics) CheckoutSession(outcome string) {
	if b == nil || b.checkoutSessions == nil {
		return
	}
	b.checkoutSessions.WithLabelValues(normalizeLabel(outcome)).Inc()
}
