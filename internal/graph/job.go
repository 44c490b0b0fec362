package graph

import (
	"fmt"
	"time"
)

// JobState is the aggregate state of a provisioning job.
type JobState string

const (
	JobQueued    JobState = "Queued"
	JobRunning   JobState = "Running"
	JobSucceeded JobState = "Succeeded"
	JobFailed    JobState = "Failed"
	JobCancelled JobState = "Cancelled"
)

// Terminal reports whether the job state permits no further transition.
func (s JobState) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobCancelled:
		return true
	}
	return false
}

// Job is one end-to-end cluster provisioning request. It exclusively owns its
// node set; only the owning orchestrator loop mutates it.
type Job struct {
	ID          string    `json:"id"`
	ClusterName string    `json:"clusterName"`
	CreatedAt   time.Time `json:"createdAt"`

	// NodeOrder preserves declaration order for deterministic iteration.
	NodeOrder []string         `json:"nodeOrder"`
	Nodes     map[string]*Node `json:"nodes"`

	OverallState    JobState `json:"overallState"`
	ProgressPercent int      `json:"progressPercent"`

	// FirstFailed is the id of the first node to reach Failed or TimedOut,
	// so callers can pinpoint the failure without scanning node states.
	FirstFailed string `json:"firstFailed,omitempty"`
}

// NewJob builds a job from the given specs, validating the dependency graph.
func NewJob(id, clusterName string, specs []NodeSpec) (*Job, error) {
	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}

	j := &Job{
		ID:           id,
		ClusterName:  clusterName,
		CreatedAt:    time.Now().UTC(),
		Nodes:        make(map[string]*Node, len(specs)),
		OverallState: JobQueued,
	}
	for _, spec := range specs {
		node := &Node{Spec: spec, State: StatePending}
		j.NodeOrder = append(j.NodeOrder, node.ID())
		j.Nodes[node.ID()] = node
	}
	return j, nil
}

// Node returns the node with the given id, or nil.
func (j *Job) Node(id string) *Node { return j.Nodes[id] }

// TransitionNode moves a node to the given state, enforcing the state machine
// and keeping job-level bookkeeping (submission anchor, first failure)
// consistent. Returns the node's previous state.
func (j *Job) TransitionNode(id string, to NodeState) (NodeState, error) {
	node, ok := j.Nodes[id]
	if !ok {
		return "", fmt.Errorf("unknown node %q in job %s", id, j.ID)
	}

	from := node.State
	if err := node.transition(to); err != nil {
		return from, err
	}

	if to == StateSubmitted && node.FirstSubmittedAt.IsZero() {
		node.FirstSubmittedAt = time.Now().UTC()
	}
	if (to == StateFailed || to == StateTimedOut) && j.FirstFailed == "" {
		j.FirstFailed = id
	}
	return from, nil
}

// FirstFailedNode returns the first node that reached Failed or TimedOut,
// or nil if the job has no failed node.
func (j *Job) FirstFailedNode() *Node {
	if j.FirstFailed == "" {
		return nil
	}
	return j.Nodes[j.FirstFailed]
}

// Snapshot returns a deep copy safe to hand outside the orchestrator loop.
func (j *Job) Snapshot() *Job {
	cp := *j
	cp.NodeOrder = append([]string(nil), j.NodeOrder...)
	cp.Nodes = make(map[string]*Node, len(j.Nodes))
	for id, node := range j.Nodes {
		n := *node
		n.Spec.DependsOn = append([]string(nil), node.Spec.DependsOn...)
		n.Spec.Capabilities = append([]Capability(nil), node.Spec.Capabilities...)
		n.Spec.Manifest = append([]byte(nil), node.Spec.Manifest...)
		cp.Nodes[id] = &n
	}
	return &cp
}
