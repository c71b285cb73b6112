package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistryNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "satellite_registry_nodes",
		Help: "Number of nodes currently held in the liveness registry",
	})

	NodesEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "satellite_nodes_evicted_total",
		Help: "Total nodes evicted by the health sweeper",
	})

	HeartbeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satellite_heartbeats_total",
		Help: "Total node heartbeats received",
	}, []string{"result"})

	DeploymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satellite_deployments_total",
		Help: "Deployments by terminal or aborting outcome",
	}, []string{"status"})

	PinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satellite_pins_total",
		Help: "Per-node deploy calls by outcome",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "satellite_stage_duration_seconds",
		Help:    "Duration of outbound deployment stage calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage", "result"})

	TasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "satellite_background_tasks_in_flight",
		Help: "Detached background tasks currently running",
	})
)

// Result maps an error to a metric label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
