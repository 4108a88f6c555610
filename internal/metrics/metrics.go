package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QueueEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "offliner",
			Name:      "queue_events_total",
			Help:      "Count of engine events processed by the reconciler.",
		},
		[]string{"type"},
	)

	AdmissionPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "offliner",
			Name:      "admission_passes_total",
			Help:      "Drain passes run by the admission controller.",
		},
	)

	EngineRPCErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "offliner",
			Name:      "engine_rpc_errors_total",
			Help:      "Errors from transfer engine RPC calls.",
		},
		[]string{"method"},
	)

	EngineRPCLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "offliner",
			Name:      "engine_rpc_latency_seconds",
			Help:      "Latency of transfer engine RPC calls.",
		},
		[]string{"method"},
	)

	ActiveTransfers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "offliner",
			Name:      "active_transfers",
			Help:      "Transfers the engine last reported as running.",
		},
	)
)

// Register registers the offliner metrics into the default registry.
func Register() {
	prometheus.MustRegister(QueueEvents, AdmissionPasses, EngineRPCErrors, EngineRPCLatency, ActiveTransfers)
}
