package orchestrator

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rosahcp",
			Subsystem: "orchestrator",
			Name:      "jobs_total",
			Help:      "Total number of provisioning jobs by final state",
		},
		[]string{"state"},
	)

	jobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rosahcp",
			Subsystem: "orchestrator",
			Name:      "jobs_running",
			Help:      "Number of jobs currently being orchestrated",
		},
	)

	nodeTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rosahcp",
			Subsystem: "orchestrator",
			Name:      "node_transitions_total",
			Help:      "Total node state transitions by resource kind and new state",
		},
		[]string{"kind", "state"},
	)

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rosahcp",
			Subsystem: "gateway",
			Name:      "submissions_total",
			Help:      "Total apply gateway submissions by result",
		},
		[]string{"result"},
	)

	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rosahcp",
			Subsystem: "gateway",
			Name:      "probes_total",
			Help:      "Total status probes by result",
		},
		[]string{"result"},
	)

	probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rosahcp",
			Subsystem: "gateway",
			Name:      "probe_duration_seconds",
			Help:      "Latency of status probes in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

)

func init() {
	prometheus.MustRegister(
		jobsTotal,
		jobsRunning,
		nodeTransitionsTotal,
		submissionsTotal,
		probesTotal,
		probeDuration,
	)
}

// registerDroppedEventsGauge exposes the publisher's dropped-event count.
// Called once per process from NewManager when metrics are enabled.
func registerDroppedEventsGauge(droppedTotal func() uint64) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "rosahcp",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Subscriber events discarded due to full buffers",
		},
		func() float64 { return float64(droppedTotal()) },
	))
}

// Metrics helper methods that check enableMetrics before recording, so
// library users embedding the orchestrator can opt out.

func (m *Manager) recordJobDone(state string) {
	if m.enableMetrics {
		jobsTotal.WithLabelValues(state).Inc()
		jobsRunning.Dec()
	}
}

func (m *Manager) recordJobStarted() {
	if m.enableMetrics {
		jobsRunning.Inc()
	}
}

func (o *Orchestrator) recordTransition(kind, state string) {
	if o.enableMetrics {
		nodeTransitionsTotal.WithLabelValues(kind, state).Inc()
	}
}

func (o *Orchestrator) recordSubmission(result string) {
	if o.enableMetrics {
		submissionsTotal.WithLabelValues(result).Inc()
	}
}

func (o *Orchestrator) recordProbe(result string, seconds float64) {
	if o.enableMetrics {
		probesTotal.WithLabelValues(result).Inc()
		probeDuration.Observe(seconds)
	}
}
