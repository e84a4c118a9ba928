package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	MessagesEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_messages_enqueued_total", Help: "Messages placed on the dispatch queue"},
	)
	Sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_sends_total", Help: "Send attempt outcomes"},
		[]string{"result"},
	)
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "dispatch_tick_duration_seconds", Help: "Processing tick duration"},
	)
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "dispatch_queue_depth", Help: "Items currently on the dispatch queue"},
	)
	ScheduleFires = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scheduler_fires_total", Help: "Schedule fire outcomes"},
		[]string{"result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(MessagesEnqueued, Sends, TickDuration, QueueDepth, ScheduleFires)
}
