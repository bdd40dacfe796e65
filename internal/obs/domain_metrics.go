package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrderEditsTotal counts draft edit operations by op and outcome.
	OrderEditsTotal *prometheus.CounterVec
	// OrdersSubmittedTotal counts orders handed to the submission queue.
	OrdersSubmittedTotal prometheus.Counter
	// DraftsPurgedTotal counts drafts dropped by the expiry janitor.
	DraftsPurgedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers the order-form domain
// collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrderEditsTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_edits_total",
			Help:      "Count of draft order edits by operation and outcome.",
		}, []string{"op", "result"}))
		OrdersSubmittedTotal = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of orders enqueued for submission.",
		}))
		DraftsPurgedTotal = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_purged_total",
			Help:      "Count of expired drafts removed by the janitor.",
		}))
	})
}

// RecordOrderEdit increments the edit counter when metrics are registered.
func RecordOrderEdit(op, result string) {
	if OrderEditsTotal == nil {
		return
	}
	OrderEditsTotal.WithLabelValues(op, result).Inc()
}

// RecordOrderSubmitted increments the submission counter.
func RecordOrderSubmitted() {
	if OrdersSubmittedTotal == nil {
		return
	}
	OrdersSubmittedTotal.Inc()
}

// RecordDraftPurged increments the janitor counter.
func RecordDraftPurged() {
	if DraftsPurgedTotal == nil {
		return
	}
	DraftsPurgedTotal.Inc()
}
