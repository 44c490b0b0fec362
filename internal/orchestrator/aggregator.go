package orchestrator

import "github.com/imamik/rosahcp/internal/graph"

// kindWeights biases progress toward the expensive resources: a ready
// control plane means more than a ready namespace.
var kindWeights = map[graph.NodeKind]int{
	graph.KindControlPlane: 4,
	graph.KindCluster:      4,
	graph.KindNetwork:      2,
	graph.KindRoleConfig:   2,
}

func weightOf(kind graph.NodeKind) int {
	if w, ok := kindWeights[kind]; ok {
		return w
	}
	return 1
}

// ComputeState derives the job-level state from the node set alone:
// Succeeded iff every node is Ready, Failed iff any node is Failed or
// TimedOut, Running otherwise. Pure; Cancelled is never derived here
// because cancellation is an explicit user transition, not an aggregate.
func ComputeState(job *graph.Job) graph.JobState {
	allReady := true
	for _, id := range job.NodeOrder {
		switch job.Nodes[id].State {
		case graph.StateFailed, graph.StateTimedOut:
			return graph.JobFailed
		case graph.StateReady:
		default:
			allReady = false
		}
	}
	if allReady {
		return graph.JobSucceeded
	}
	return graph.JobRunning
}

// ComputeProgress derives the weighted percentage of Ready nodes.
func ComputeProgress(job *graph.Job) int {
	var total, ready int
	for _, id := range job.NodeOrder {
		node := job.Nodes[id]
		w := weightOf(node.Spec.Kind)
		total += w
		if node.State == graph.StateReady {
			ready += w
		}
	}
	if total == 0 {
		return 0
	}
	return ready * 100 / total
}
