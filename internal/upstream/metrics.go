package upstream

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	fetchTotal *prometheus.CounterVec
)

// MustRegisterMetrics registers upstream fetch collectors. Safe to call more
// than once; only the first call registers.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fetch_total",
			Help:      "Count of upstream lookup fetches by target and result.",
		}, []string{"target", "result"})
		reg.MustRegister(fetchTotal)
	})
}

func recordFetch(target, result string) {
	if fetchTotal == nil {
		return
	}
	fetchTotal.WithLabelValues(target, result).Inc()
}
