package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CostBatchesTotal counts protocol cost calculations by outcome.
	CostBatchesTotal *prometheus.CounterVec
	// CostRowsSkippedTotal counts rows excluded from costing by reason class.
	CostRowsSkippedTotal *prometheus.CounterVec
	// RateLookupsTotal counts exchange rate resolutions by source and result.
	RateLookupsTotal *prometheus.CounterVec
	// CostBatchDuration records end-to-end batch calculation latency.
	CostBatchDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific
// Prometheus collectors. Callers that never invoke it (tests, library use)
// leave the collectors nil; increment helpers below tolerate that.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CostBatchesTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_batches_total",
			Help:      "Count of protocol cost batch calculations by outcome.",
		}, []string{"result"}))
		CostRowsSkippedTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_rows_skipped_total",
			Help:      "Count of protocol rows excluded from costing.",
		}, []string{"reason"}))
		RateLookupsTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_lookups_total",
			Help:      "Count of exchange rate resolutions by source and result.",
		}, []string{"source", "result"}))
		hist := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cost_batch_duration_ms",
			Help:      "Latency of protocol cost batch calculations in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		})
		if err := reg.Register(hist); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
					hist = existing
				}
			} else {
				panic(err)
			}
		}
		CostBatchDuration = hist
	})
}

// CountBatch records a batch outcome when metrics are registered.
func CountBatch(result string) {
	if CostBatchesTotal != nil {
		CostBatchesTotal.WithLabelValues(result).Inc()
	}
}

// CountSkippedRow records a skipped row when metrics are registered.
func CountSkippedRow(reason string) {
	if CostRowsSkippedTotal != nil {
		CostRowsSkippedTotal.WithLabelValues(reason).Inc()
	}
}

// CountRateLookup records an exchange rate resolution when metrics are registered.
func CountRateLookup(source, result string) {
	if RateLookupsTotal != nil {
		RateLookupsTotal.WithLabelValues(source, result).Inc()
	}
}

// ObserveBatchDuration records batch latency when metrics are registered.
func ObserveBatchDuration(ms float64) {
	if CostBatchDuration != nil {
		CostBatchDuration.Observe(ms)
	}
}
