package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	workersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "swarm",
			Subsystem: "scheduler",
			Name:      "workers",
			Help:      "The number of scheduler workers in the swarm.",
		})
	liveProcessesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "swarm",
			Subsystem: "process",
			Name:      "live",
			Help:      "The number of live processes.",
		})
	spawnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swarm",
			Subsystem: "process",
			Name:      "spawns_total",
			Help:      "Total processes spawned.",
		})
	contextSwitchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swarm",
			Subsystem: "scheduler",
			Name:      "context_switches_total",
			Help:      "Total process dispatches across all schedulers.",
		})
	reductionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swarm",
			Subsystem: "scheduler",
			Name:      "reductions_total",
			Help:      "Total reduction units consumed by processes.",
		})
	sendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swarm",
			Subsystem: "mailbox",
			Name:      "sends_total",
			Help:      "Total messages delivered to mailboxes.",
		})
	stealsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swarm",
			Subsystem: "scheduler",
			Name:      "steals_total",
			Help:      "Total processes moved between schedulers by work stealing.",
		})
	collectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swarm",
			Subsystem: "heap",
			Name:      "collections_total",
			Help:      "Total per-process heap collection cycles.",
		})
)

// InitMetrics registers all metrics in this file.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(workersGauge)
	registry.MustRegister(liveProcessesGauge)
	registry.MustRegister(spawnsTotal)
	registry.MustRegister(contextSwitchesTotal)
	registry.MustRegister(reductionsTotal)
	registry.MustRegister(sendsTotal)
	registry.MustRegister(stealsTotal)
	registry.MustRegister(collectionsTotal)
}
