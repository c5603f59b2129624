package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "gate"

var (
	Registry = prometheus.NewRegistry()

	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_total",
		Help:      "Accepted client connections.",
	})
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Client connections not yet closed.",
	})
	ConnectionTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connection_timeouts_total",
		Help:      "Connections force-closed by the deadline.",
	})
	AcceptErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accept_errors_total",
		Help:      "Failed accepts on the listener.",
	})
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Dispatched requests by path and error code.",
	}, []string{"path", "error"})
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Dispatch latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path"})
	MysqlProbeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mysql",
		Name:      "probe_failures_total",
		Help:      "Pooled sessions dropped by the health check.",
	})
	MysqlReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mysql",
		Name:      "reconnects_total",
		Help:      "Sessions rebuilt by the health check.",
	})
)

func init() {
	Registry.MustRegister(
		ConnectionsTotal,
		ConnectionsActive,
		ConnectionTimeouts,
		AcceptErrors,
		Requests,
		RequestDuration,
		MysqlProbeFailures,
		MysqlReconnects,
		collectors.NewGoCollector(),
	)
}

func ObserveRequest(path string, code int, seconds float64) {
	Requests.WithLabelValues(path, strconv.Itoa(code)).Inc()
	RequestDuration.WithLabelValues(path).Observe(seconds)
}

// RegisterPool exports idle/total gauges for a named pool.
func RegisterPool(name string, idle, total func() int) error {
	labels := prometheus.Labels{"pool": name}
	idleGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "pool_idle",
		Help:        "Queued resources in the pool.",
		ConstLabels: labels,
	}, func() float64 { return float64(idle()) })
	totalGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "pool_total",
		Help:        "Live resources owned by the pool.",
		ConstLabels: labels,
	}, func() float64 { return float64(total()) })
	if err := Registry.Register(idleGauge); err != nil {
		return err
	}
	return Registry.Register(totalGauge)
}
