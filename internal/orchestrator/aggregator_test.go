package orchestrator

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/rosahcp/internal/graph"
)

var nodeStates = []graph.NodeState{
	graph.StatePending, graph.StateSubmitted, graph.StateObserving,
	graph.StateReady, graph.StateFailed, graph.StateTimedOut,
}

// Succeeded iff every node is Ready; Failed iff any node is Failed or
// TimedOut; Running otherwise. Checked over random state assignments.
func TestComputeState_RandomAssignments(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.Intn(12)
		job := jobWithStates(t, randomStates(rng, n))

		got := ComputeState(job)

		allReady, anyFailed := true, false
		for _, node := range job.Nodes {
			if node.State != graph.StateReady {
				allReady = false
			}
			if node.State == graph.StateFailed || node.State == graph.StateTimedOut {
				anyFailed = true
			}
		}

		switch {
		case anyFailed:
			assert.Equal(t, graph.JobFailed, got)
		case allReady:
			assert.Equal(t, graph.JobSucceeded, got)
		default:
			assert.Equal(t, graph.JobRunning, got)
		}
	}
}

func TestComputeProgress(t *testing.T) {
	t.Parallel()

	job := jobWithStates(t, []graph.NodeState{graph.StatePending, graph.StatePending})
	assert.Equal(t, 0, ComputeProgress(job))

	for _, id := range job.NodeOrder {
		job.Nodes[id].State = graph.StateReady
	}
	assert.Equal(t, 100, ComputeProgress(job))
}

func TestComputeProgress_WeightsExpensiveKinds(t *testing.T) {
	t.Parallel()

	specs := []graph.NodeSpec{
		{Kind: graph.KindNamespace, Name: "ns"},
		{Kind: graph.KindControlPlane, Name: "cp"},
	}
	job, err := graph.NewJob("job-w", "c", specs)
	require.NoError(t, err)

	// Namespace weighs 1, control plane 4: a ready namespace alone is 20%.
	job.Node("Namespace/ns").State = graph.StateReady
	assert.Equal(t, 20, ComputeProgress(job))

	job.Node("Namespace/ns").State = graph.StatePending
	job.Node("ControlPlane/cp").State = graph.StateReady
	assert.Equal(t, 80, ComputeProgress(job))
}

// Marking additional nodes Ready never lowers the computed progress.
func TestComputeProgress_MonotonicUnderReadiness(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 100; trial++ {
		n := 2 + rng.Intn(10)
		job := jobWithStates(t, randomStates(rng, n))

		before := ComputeProgress(job)
		for _, id := range job.NodeOrder {
			if job.Nodes[id].State != graph.StateReady && rng.Intn(2) == 0 {
				job.Nodes[id].State = graph.StateReady
				after := ComputeProgress(job)
				assert.GreaterOrEqual(t, after, before)
				before = after
			}
		}
	}
}

func randomStates(rng *rand.Rand, n int) []graph.NodeState {
	states := make([]graph.NodeState, n)
	for i := range states {
		states[i] = nodeStates[rng.Intn(len(nodeStates))]
	}
	return states
}

// jobWithStates builds a dependency-free job and forces the given states.
// Aggregation is pure over the node set, so states are set directly rather
// than walked through the transition machine.
func jobWithStates(t *testing.T, states []graph.NodeState) *graph.Job {
	t.Helper()

	specs := make([]graph.NodeSpec, len(states))
	for i := range states {
		specs[i] = graph.NodeSpec{Kind: graph.KindGeneric, Name: fmt.Sprintf("n%d", i)}
	}
	job, err := graph.NewJob("job-agg", "c", specs)
	require.NoError(t, err)

	for i, id := range job.NodeOrder {
		job.Nodes[id].State = states[i]
	}
	return job
}
