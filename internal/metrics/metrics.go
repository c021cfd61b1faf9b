// Package metrics exposes prometheus instrumentation for the billing engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	billingRuns     *prometheus.CounterVec
	billsCreated    *prometheus.CounterVec
	runFailures     *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	reconciliations *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		billingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propera_billing_runs_total",
			Help: "Billing job executions by job name.",
		}, []string{"job"}),
		billsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propera_bills_created_total",
			Help: "Bills created by source.",
		}, []string{"source"}),
		runFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propera_billing_run_failures_total",
			Help: "Billing job failures by job name.",
		}, []string{"job"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propera_billing_run_duration_seconds",
			Help:    "Billing job duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propera_reconciliations_total",
			Help: "Bill reconciliations by resulting status.",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propera_notifications_total",
			Help: "Notification dispatch outcomes by event type.",
		}, []string{"event", "outcome"}),
	}
	reg.MustRegister(
		m.billingRuns,
		m.billsCreated,
		m.runFailures,
		m.runDuration,
		m.reconciliations,
		m.notifications,
	)
	return m
}

func (m *Metrics) IncBillingRun(job string) {
	if m == nil {
		return
	}
	m.billingRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) AddBillsCreated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.billsCreated.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) IncRunFailure(job string) {
	if m == nil {
		return
	}
	m.runFailures.WithLabelValues(job).Inc()
}

func (m *Metrics) ObserveRunDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) IncReconciliation(status string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(status).Inc()
}

func (m *Metrics) IncNotification(event, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, outcome).Inc()
}
