package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})

	SlowClients = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_slow_clients_total",
		Help: "Connections closed because their send buffer was full",
	})

	PresenceWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_writes_total",
		Help: "Persisted presence transitions",
	}, []string{"state"})

	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_sent_total",
		Help: "Messages persisted, by entry point",
	}, []string{"source"})

	FanoutFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "message_fanout_failures_total",
		Help: "Post-commit steps that failed and were skipped",
	}, []string{"step"})

	SendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "message_send_duration_seconds",
		Help:    "Time from validation to last broadcast",
		Buckets: prometheus.DefBuckets,
	})
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(Connections, SlowClients, PresenceWrites, MessagesSent, FanoutFailures, SendDuration)
	})
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
