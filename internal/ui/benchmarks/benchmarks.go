// Package benchmarks provides timing estimates for provisioning resources.
package benchmarks

import (
	"time"

	"github.com/imamik/rosahcp/internal/graph"
)

// DefaultTimings are median per-kind convergence durations from E2E runs
// (seconds).
var DefaultTimings = map[graph.NodeKind]int{
	graph.KindNamespace:    5,
	graph.KindSecret:       10,
	graph.KindRoleConfig:   60,
	graph.KindNetwork:      300,
	graph.KindControlPlane: 900,
	graph.KindCluster:      1200,
	graph.KindGeneric:      60,
}

// EstimateRemaining calculates the estimated time until the job converges,
// based on per-kind benchmarks and the durations observed so far.
func EstimateRemaining(job *graph.Job, now time.Time) time.Duration {
	return estimateWithScale(job, now, PerformanceScale(job, now))
}

func estimateWithScale(job *graph.Job, now time.Time, scale float64) time.Duration {
	var remaining time.Duration

	for _, id := range job.NodeOrder {
		node := job.Node(id)
		expected := expectedDuration(node.Spec.Kind)
		expected = time.Duration(float64(expected) * scale)

		switch node.State {
		case graph.StatePending:
			remaining += expected
		case graph.StateSubmitted, graph.StateObserving:
			// For in-flight nodes: max(0, expected - elapsed).
			if node.FirstSubmittedAt.IsZero() {
				remaining += expected
				continue
			}
			if elapsed := now.Sub(node.FirstSubmittedAt); elapsed < expected {
				remaining += expected - elapsed
			}
		}
	}
	return remaining
}

// PerformanceScale derives a speed multiplier from observed-vs-expected
// durations. Example: expected 5m, observed 7m30s => scale=1.5 (future ETAs
// are stretched by 50%).
func PerformanceScale(job *graph.Job, now time.Time) float64 {
	var expectedTotal time.Duration
	var actualTotal time.Duration

	for _, id := range job.NodeOrder {
		node := job.Node(id)
		if node.FirstSubmittedAt.IsZero() {
			continue
		}
		expected := expectedDuration(node.Spec.Kind)

		switch node.State {
		case graph.StateReady:
			if node.LastObservedAt.IsZero() {
				continue
			}
			expectedTotal += expected
			actualTotal += node.LastObservedAt.Sub(node.FirstSubmittedAt)
		case graph.StateSubmitted, graph.StateObserving:
			// If an in-flight node is overrunning, fold it in immediately
			// so the ETA adapts quickly.
			if elapsed := now.Sub(node.FirstSubmittedAt); elapsed > expected {
				expectedTotal += expected
				actualTotal += elapsed
			}
		}
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

func expectedDuration(kind graph.NodeKind) time.Duration {
	if secs, ok := DefaultTimings[kind]; ok {
		return time.Duration(secs) * time.Second
	}
	return time.Duration(DefaultTimings[graph.KindGeneric]) * time.Second
}
