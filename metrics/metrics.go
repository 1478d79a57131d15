// Package metrics registers the Prometheus counters/gauges SPEC_FULL.md
// §4.8 adds over the HTLC decision pipeline and invoice lifecycle. New
// registers them with the given Registerer; this package serves nothing.
package metrics

import (
	"github.com/lightninglabs/hold/settler"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registered collectors. A nil *Metrics is safe to call
// every method on (all methods no-op), so components that take an optional
// Metrics don't need a separate "metrics disabled" branch.
type Metrics struct {
	htlcsAccepted     prometheus.Counter
	htlcsFailed       *prometheus.CounterVec
	invoicesSettled   prometheus.Counter
	invoicesCancelled prometheus.Counter
	parkedHTLCs       prometheus.Gauge
}

// New constructs and registers the hold_* collectors against reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		htlcsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hold_htlcs_accepted_total",
			Help: "Total number of incoming HTLCs accepted against a hold invoice.",
		}),
		htlcsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hold_htlcs_failed_total",
			Help: "Total number of incoming HTLCs failed back, by wire failure code.",
		}, []string{"code"}),
		invoicesSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hold_invoices_settled_total",
			Help: "Total number of hold invoices settled.",
		}),
		invoicesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hold_invoices_cancelled_total",
			Help: "Total number of hold invoices cancelled.",
		}),
		parkedHTLCs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hold_parked_htlcs",
			Help: "Current number of HTLCs parked awaiting settle/cancel/timeout.",
		}),
	}

	collectors := []prometheus.Collector{
		m.htlcsAccepted, m.htlcsFailed, m.invoicesSettled,
		m.invoicesCancelled, m.parkedHTLCs,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// HTLCAccepted records one HTLC admitted by the handler.
func (m *Metrics) HTLCAccepted() {
	if m == nil {
		return
	}
	m.htlcsAccepted.Inc()
}

// HTLCFailed records one HTLC failed back with code.
func (m *Metrics) HTLCFailed(code settler.FailCode) {
	if m == nil {
		return
	}
	m.htlcsFailed.WithLabelValues(codeLabel(code)).Inc()
}

// InvoiceSettled records one invoice reaching Paid.
func (m *Metrics) InvoiceSettled() {
	if m == nil {
		return
	}
	m.invoicesSettled.Inc()
}

// InvoiceCancelled records one invoice reaching Cancelled.
func (m *Metrics) InvoiceCancelled() {
	if m == nil {
		return
	}
	m.invoicesCancelled.Inc()
}

// SetParkedHTLCs sets the current parked-HTLC gauge, polled from
// settler.Settler.GetExpiries's cardinality by the caller.
func (m *Metrics) SetParkedHTLCs(n int) {
	if m == nil {
		return
	}
	m.parkedHTLCs.Set(float64(n))
}

func codeLabel(code settler.FailCode) string {
	switch code {
	case settler.FailIncorrectPaymentDetails:
		return "incorrect_payment_details"
	case settler.FailFinalIncorrectCltvExpiry:
		return "final_incorrect_cltv_expiry"
	case settler.FailMppTimeout:
		return "mpp_timeout"
	default:
		return "unknown"
	}
}
