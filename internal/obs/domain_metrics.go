package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts checkout attempts by outcome.
	CheckoutTotal *prometheus.CounterVec
	// InstallmentsGeneratedTotal counts installments appended by the lifecycle job.
	InstallmentsGeneratedTotal prometheus.Counter
	// InstallmentsMarkedOverdueTotal counts open installments flagged overdue.
	InstallmentsMarkedOverdueTotal prometheus.Counter
	// InstallmentPaymentsTotal counts pay-installment attempts by outcome.
	InstallmentPaymentsTotal *prometheus.CounterVec
	// InstallmentJobRunsTotal counts installment job runs by outcome.
	InstallmentJobRunsTotal *prometheus.CounterVec
	// InstallmentJobSkippedTotal counts purchases skipped by the job, by reason.
	InstallmentJobSkippedTotal *prometheus.CounterVec
	// InstallmentJobDuration records how long a job run takes in seconds.
	InstallmentJobDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout outcomes.",
		}, []string{"result"})
		InstallmentsGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_generated_total",
			Help:      "Number of installments generated for financed purchases.",
		})
		InstallmentsMarkedOverdueTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_marked_overdue_total",
			Help:      "Number of installments flagged overdue after their deadline.",
		})
		InstallmentPaymentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installment_payments_total",
			Help:      "Count of installment payment outcomes.",
		}, []string{"result"})
		InstallmentJobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installment_job_runs_total",
			Help:      "Count of installment generation runs by outcome.",
		}, []string{"result"})
		InstallmentJobSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installment_job_skipped_total",
			Help:      "Purchases skipped by the installment job.",
		}, []string{"reason"})
		InstallmentJobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "installment_job_duration_seconds",
			Help:      "Duration of installment generation runs.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		})

		CheckoutTotal = register(reg, CheckoutTotal)
		InstallmentsGeneratedTotal = register(reg, InstallmentsGeneratedTotal)
		InstallmentsMarkedOverdueTotal = register(reg, InstallmentsMarkedOverdueTotal)
		InstallmentPaymentsTotal = register(reg, InstallmentPaymentsTotal)
		InstallmentJobRunsTotal = register(reg, InstallmentJobRunsTotal)
		InstallmentJobSkippedTotal = register(reg, InstallmentJobSkippedTotal)
		InstallmentJobDuration = register(reg, InstallmentJobDuration)
	})
}
