package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tuplectl",
			Subsystem: "client",
			Name:      "exchanges_total",
			Help:      "Tuple-space exchanges by command and result.",
		},
		[]string{"command", "result"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tuplectl",
			Subsystem: "client",
			Name:      "exchange_duration_seconds",
			Help:      "Tuple-space exchange duration in seconds, dial to close.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	tuplesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tuplectl",
			Subsystem: "client",
			Name:      "tuples_received_total",
			Help:      "Tuples decoded from server responses.",
		},
		[]string{"command"},
	)
	bytesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tuplectl",
			Subsystem: "client",
			Name:      "request_bytes_total",
			Help:      "Request bytes written, command code included.",
		},
		[]string{"command"},
	)
)

// Collectors returns every collector owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{exchanges, exchangeDuration, tuplesReceived, bytesSent}
}

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}

// RecordExchange records one finished exchange. result is "ok", "miss" or an
// error kind.
func RecordExchange(command, result string, requestBytes, tuples int, duration time.Duration) {
	RegisterMetrics()
	exchanges.WithLabelValues(command, result).Inc()
	exchangeDuration.WithLabelValues(command).Observe(duration.Seconds())
	if requestBytes > 0 {
		bytesSent.WithLabelValues(command).Add(float64(requestBytes))
	}
	if tuples > 0 {
		tuplesReceived.WithLabelValues(command).Add(float64(tuples))
	}
}
