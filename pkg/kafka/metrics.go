package kafka

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once
	registerer  prometheus.Registerer = prometheus.DefaultRegisterer
)

// SetMetricsRegisterer replaces the registerer used for producer and consumer
// metrics. It must be called before the first producer or consumer is built.
func SetMetricsRegisterer(reg prometheus.Registerer) { registerer = reg }

func registerMetrics() {
	producerMsgs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pricepulse", Subsystem: "kafka", Name: "producer_messages_total", Help: "Messages published to Kafka"},
		[]string{"topic", "compression", "result"},
	)
	producerBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pricepulse", Subsystem: "kafka", Name: "producer_bytes_total", Help: "Payload bytes published"},
		[]string{"topic", "compression"},
	)
	producerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "pricepulse", Subsystem: "kafka", Name: "producer_publish_seconds", Help: "Publish latency", Buckets: prometheus.DefBuckets},
		[]string{"topic"},
	)
	consumerHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pricepulse", Subsystem: "kafka", Name: "consumer_messages_total", Help: "Messages handled by result"},
		[]string{"topic", "result"},
	)
	consumerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "pricepulse", Subsystem: "kafka", Name: "consumer_handle_seconds", Help: "Handling time per message", Buckets: prometheus.DefBuckets},
		[]string{"topic"},
	)
	consumerQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "pricepulse", Subsystem: "kafka", Name: "consumer_queue_depth", Help: "Messages waiting for a worker"},
		[]string{"topic"},
	)
	registerer.MustRegister(producerMsgs, producerBytes, producerLatency, consumerHandled, consumerLatency, consumerQueueDepth)
}
