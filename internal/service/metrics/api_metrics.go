package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pricepulse",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of anomaly API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricepulse",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by anomaly API endpoint",
		},
		[]string{"endpoint"},
	)
)

// Register adds the API collectors to reg once per process.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(APILatency, APIErrors)
	})
}
