package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	queueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_queue_length",
		Help: "Chat requests waiting in the queue.",
	})
	inProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_queue_processing",
		Help: "1 while a chat request is being processed.",
	})
	rejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_queue_rejected_total",
		Help: "Chat requests rejected because the queue was full.",
	})
	processed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_queue_processed_total",
		Help: "Chat requests processed by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(queueLength, inProgress, rejected, processed)
}
