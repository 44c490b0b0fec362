package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/rosahcp/internal/events"
	"github.com/imamik/rosahcp/internal/gateway"
	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/retry"
)

// fakeGateway accepts every spec unless a rejection is scripted, and records
// submission order and counts.
type fakeGateway struct {
	mu      sync.Mutex
	order   []string
	counts  map[string]int
	rejects map[string]string
	exists  map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		counts:  make(map[string]int),
		rejects: make(map[string]string),
		exists:  make(map[string]bool),
	}
}

func (g *fakeGateway) Submit(_ context.Context, spec graph.NodeSpec) (gateway.Acceptance, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := spec.ID()
	g.order = append(g.order, id)
	g.counts[id]++

	if detail, ok := g.rejects[id]; ok {
		return gateway.Acceptance{}, gateway.Reject("%s", detail)
	}
	return gateway.Acceptance{
		RemoteRef:     "remote/" + id,
		AlreadyExists: g.exists[id],
	}, nil
}

func (g *fakeGateway) submitCount(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[id]
}

// fakeProber answers each probe from a per-node script keyed by call number
// (1-based). Nodes without a script are Ready on the first probe.
type fakeProber struct {
	mu     sync.Mutex
	calls  map[string]int
	script map[string]func(call int) (gateway.Observation, error)
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		calls:  make(map[string]int),
		script: make(map[string]func(int) (gateway.Observation, error)),
	}
}

// readyAfter makes the node report Observing until the nth probe.
func (p *fakeProber) readyAfter(id string, n int) {
	p.script[id] = func(call int) (gateway.Observation, error) {
		if call < n {
			return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: "Provisioning"}, nil
		}
		return gateway.Observation{Outcome: gateway.OutcomeReady, Detail: "Ready"}, nil
	}
}

func (p *fakeProber) Probe(_ context.Context, spec graph.NodeSpec, _ string) (gateway.Observation, error) {
	p.mu.Lock()
	p.calls[spec.ID()]++
	call := p.calls[spec.ID()]
	fn := p.script[spec.ID()]
	p.mu.Unlock()

	if fn == nil {
		return gateway.Observation{Outcome: gateway.OutcomeReady, Detail: "Ready"}, nil
	}
	return fn(call)
}

func (p *fakeProber) probeCount(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

// rosaSpecs is the canonical five-node graph: namespace first, network and
// role config next, then cluster, then control plane.
func rosaSpecs() []graph.NodeSpec {
	return []graph.NodeSpec{
		{Kind: graph.KindNamespace, Name: "clusters"},
		{Kind: graph.KindNetwork, Name: "vpc", DependsOn: []string{"Namespace/clusters"}},
		{Kind: graph.KindRoleConfig, Name: "roles", DependsOn: []string{"Namespace/clusters"}},
		{Kind: graph.KindCluster, Name: "rosa", DependsOn: []string{"Network/vpc", "RoleConfig/roles"}},
		{Kind: graph.KindControlPlane, Name: "hcp", DependsOn: []string{"Cluster/rosa"}},
	}
}

func fastPolicies() PolicySet {
	return PolicySet{
		Default: retry.Policy{
			MaxAttempts: 50,
			BaseDelay:   time.Millisecond,
			MaxDelay:    2 * time.Millisecond,
			Deadline:    5 * time.Second,
		},
	}
}

func testOptions(gw gateway.ApplyGateway, prober gateway.StatusProber, pub *events.Publisher) Options {
	return Options{
		Gateway:      gw,
		Prober:       prober,
		Policies:     fastPolicies(),
		PollInterval: time.Millisecond,
		CallTimeout:  time.Second,
		Publisher:    pub,
		Log:          logr.Discard(),
	}
}

func runToCompletion(t *testing.T, job *graph.Job, opts Options) *graph.Job {
	t.Helper()
	o := New(job, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go o.Run(ctx)

	select {
	case <-o.Done():
	case <-ctx.Done():
		t.Fatal("orchestrator did not finish in time")
	}
	return o.Snapshot()
}

func TestOrchestrator_HappyPath(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	prober := newFakeProber()
	for _, spec := range rosaSpecs() {
		prober.readyAfter(spec.ID(), 2)
	}

	job, err := graph.NewJob("job-happy", "prod", rosaSpecs())
	require.NoError(t, err)

	snap := runToCompletion(t, job, testOptions(gw, prober, nil))

	assert.Equal(t, graph.JobSucceeded, snap.OverallState)
	assert.Equal(t, 100, snap.ProgressPercent)
	assert.Empty(t, snap.FirstFailed)
	for _, id := range snap.NodeOrder {
		assert.Equal(t, graph.StateReady, snap.Nodes[id].State, "node %s", id)
		assert.Equal(t, 1, gw.submitCount(id), "node %s must be submitted once", id)
		assert.Equal(t, 2, prober.probeCount(id), "node %s becomes ready on the second poll", id)
	}

	// Submission order respects the dependency graph.
	pos := make(map[string]int)
	gw.mu.Lock()
	for i, id := range gw.order {
		pos[id] = i
	}
	gw.mu.Unlock()
	assert.Less(t, pos["Namespace/clusters"], pos["Network/vpc"])
	assert.Less(t, pos["Namespace/clusters"], pos["RoleConfig/roles"])
	assert.Less(t, pos["Network/vpc"], pos["Cluster/rosa"])
	assert.Less(t, pos["RoleConfig/roles"], pos["Cluster/rosa"])
	assert.Less(t, pos["Cluster/rosa"], pos["ControlPlane/hcp"])
}

func TestOrchestrator_RemoteFailureStopsSequencing(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	prober := newFakeProber()
	prober.readyAfter("Namespace/clusters", 1)
	// RoleConfig converges slowly so it is still observing when the
	// network fails; it must still be driven to its own terminal state.
	prober.readyAfter("RoleConfig/roles", 4)
	prober.script["Network/vpc"] = func(int) (gateway.Observation, error) {
		return gateway.Observation{Outcome: gateway.OutcomeFailed, Detail: "CREATE_FAILED: subnet quota exceeded"}, nil
	}

	job, err := graph.NewJob("job-netfail", "prod", rosaSpecs())
	require.NoError(t, err)

	snap := runToCompletion(t, job, testOptions(gw, prober, nil))

	assert.Equal(t, graph.JobFailed, snap.OverallState)
	assert.Equal(t, "Network/vpc", snap.FirstFailed)

	network := snap.Node("Network/vpc")
	assert.Equal(t, graph.StateFailed, network.State)
	assert.Contains(t, network.Error, "subnet quota exceeded")

	// The failure picture is complete: the slow sibling still converged.
	assert.Equal(t, graph.StateReady, snap.Node("RoleConfig/roles").State)

	// Downstream nodes were never submitted.
	assert.Equal(t, graph.StatePending, snap.Node("Cluster/rosa").State)
	assert.Equal(t, graph.StatePending, snap.Node("ControlPlane/hcp").State)
	assert.Zero(t, gw.submitCount("Cluster/rosa"))
	assert.Zero(t, gw.submitCount("ControlPlane/hcp"))
}

func TestOrchestrator_SubmissionRejectedIsTerminal(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.rejects["Namespace/clusters"] = "malformed manifest"
	prober := newFakeProber()

	job, err := graph.NewJob("job-reject", "prod", rosaSpecs())
	require.NoError(t, err)

	snap := runToCompletion(t, job, testOptions(gw, prober, nil))

	assert.Equal(t, graph.JobFailed, snap.OverallState)
	ns := snap.Node("Namespace/clusters")
	assert.Equal(t, graph.StateFailed, ns.State)
	assert.Contains(t, ns.Error, "malformed manifest")

	// A rejection is not retried and consumes no probe budget.
	assert.Equal(t, 1, gw.submitCount("Namespace/clusters"))
	assert.Zero(t, prober.probeCount("Namespace/clusters"))
	assert.Zero(t, ns.Attempt)
}

func TestOrchestrator_TransientErrorsExhaustAttempts(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	prober := newFakeProber()
	prober.script["Generic/flaky"] = func(int) (gateway.Observation, error) {
		return gateway.Observation{}, gateway.Transient(errors.New("connection reset"))
	}

	job, err := graph.NewJob("job-flaky", "prod", []graph.NodeSpec{
		{Kind: graph.KindGeneric, Name: "flaky"},
	})
	require.NoError(t, err)

	opts := testOptions(gw, prober, nil)
	opts.Policies = PolicySet{Default: retry.Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Deadline:    time.Minute,
	}}

	snap := runToCompletion(t, job, opts)

	node := snap.Node("Generic/flaky")
	assert.Equal(t, graph.StateTimedOut, node.State)
	assert.Equal(t, 5, node.Attempt, "attempt budget is the binding limit")
	assert.Contains(t, node.Error, string(retry.ReasonAttemptsExhausted))
	assert.Equal(t, graph.JobFailed, snap.OverallState)
	assert.Equal(t, "Generic/flaky", snap.FirstFailed)
}

func TestOrchestrator_DeadlineBeatsAttemptBudget(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	prober := newFakeProber()
	prober.script["Network/slow"] = func(int) (gateway.Observation, error) {
		return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: "CREATE_IN_PROGRESS"}, nil
	}

	job, err := graph.NewJob("job-slow", "prod", []graph.NodeSpec{
		{Kind: graph.KindNetwork, Name: "slow"},
	})
	require.NoError(t, err)

	opts := testOptions(gw, prober, nil)
	opts.Policies = PolicySet{Default: retry.Policy{
		MaxAttempts: 10000,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Deadline:    50 * time.Millisecond,
	}}

	snap := runToCompletion(t, job, opts)

	node := snap.Node("Network/slow")
	assert.Equal(t, graph.StateTimedOut, node.State)
	assert.Contains(t, node.Error, string(retry.ReasonDeadlineExceeded))
	assert.Equal(t, "CREATE_IN_PROGRESS", node.LastObserved,
		"last observed condition is kept for diagnostics")
}

func TestOrchestrator_IdempotentResubmissionOnResume(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.exists["Namespace/clusters"] = true
	prober := newFakeProber()

	// Simulate a restart: the namespace was submitted before the process
	// died, so the reloaded job resubmits it and the remote answers
	// "already exists" with the same ref.
	job, err := graph.NewJob("job-resume", "prod", []graph.NodeSpec{
		{Kind: graph.KindNamespace, Name: "clusters"},
	})
	require.NoError(t, err)
	job.OverallState = graph.JobRunning
	_, err = job.TransitionNode("Namespace/clusters", graph.StateSubmitted)
	require.NoError(t, err)

	snap := runToCompletion(t, job, testOptions(gw, prober, nil))

	assert.Equal(t, graph.JobSucceeded, snap.OverallState)
	node := snap.Node("Namespace/clusters")
	assert.Equal(t, graph.StateReady, node.State)
	assert.Equal(t, "remote/Namespace/clusters", node.RemoteRef)
	assert.Equal(t, 1, gw.submitCount("Namespace/clusters"),
		"resume submits at most one duplicate")
}

func TestOrchestrator_Cancellation(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	prober := newFakeProber()

	probeStarted := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	prober.script["ControlPlane/hcp"] = func(int) (gateway.Observation, error) {
		once.Do(func() { close(probeStarted) })
		<-release
		return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: "Configuring"}, nil
	}

	specs := []graph.NodeSpec{
		{Kind: graph.KindControlPlane, Name: "hcp"},
		{Kind: graph.KindSecret, Name: "pull", DependsOn: []string{"ControlPlane/hcp"}},
	}
	job, err := graph.NewJob("job-cancel", "prod", specs)
	require.NoError(t, err)

	o := New(job, testOptions(gw, prober, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go o.Run(ctx)

	// Cancel while the control plane probe is in flight, then let the
	// probe finish.
	select {
	case <-probeStarted:
	case <-ctx.Done():
		t.Fatal("probe never started")
	}
	o.Cancel()
	close(release)

	select {
	case <-o.Done():
	case <-ctx.Done():
		t.Fatal("orchestrator did not drain after cancel")
	}

	snap := o.Snapshot()
	assert.Equal(t, graph.JobCancelled, snap.OverallState)

	// The in-flight probe completed and its result was recorded.
	cp := snap.Node("ControlPlane/hcp")
	assert.Equal(t, graph.StateObserving, cp.State)
	assert.Equal(t, 1, cp.Attempt)
	assert.Equal(t, "Configuring", cp.LastObserved)

	// Nothing new was submitted after the cancel.
	assert.Equal(t, graph.StatePending, snap.Node("Secret/pull").State)
	assert.Zero(t, gw.submitCount("Secret/pull"))
}

func TestOrchestrator_ProgressIsMonotonic(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	prober := newFakeProber()
	for i, spec := range rosaSpecs() {
		prober.readyAfter(spec.ID(), 1+i%3)
	}

	pub := events.NewPublisher(1024)
	sub := pub.Subscribe("job-progress")
	defer pub.Unsubscribe(sub)

	job, err := graph.NewJob("job-progress", "prod", rosaSpecs())
	require.NoError(t, err)

	o := New(job, testOptions(gw, prober, pub))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Sample progress from snapshots while the run advances.
	done := make(chan struct{})
	var samples []int
	go func() {
		defer close(done)
		for {
			select {
			case _, open := <-sub.Events():
				if !open {
					return
				}
				samples = append(samples, o.Snapshot().ProgressPercent)
			case <-o.Done():
				samples = append(samples, o.Snapshot().ProgressPercent)
				return
			}
		}
	}()

	o.Run(ctx)
	<-done

	require.NotEmpty(t, samples)
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i], samples[i-1],
			"progress regressed at sample %d: %v", i, samples)
	}
	assert.Equal(t, 100, samples[len(samples)-1])
}

func TestOrchestrator_EventsCarryTransitions(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	prober := newFakeProber()

	pub := events.NewPublisher(1024)
	sub := pub.Subscribe("job-events")

	job, err := graph.NewJob("job-events", "prod", []graph.NodeSpec{
		{Kind: graph.KindNamespace, Name: "ns"},
	})
	require.NoError(t, err)

	o := New(job, testOptions(gw, prober, pub))
	o.Run(context.Background())

	var got []events.JobEvent
	timeout := time.After(2 * time.Second)
	// Running, Submitted, Observing, Ready, Succeeded.
	for len(got) < 5 {
		select {
		case ev := <-sub.Events():
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events: %+v", len(got), got)
		}
	}
	pub.Unsubscribe(sub)

	assert.Equal(t, "Running", got[0].NewState)
	assert.Empty(t, got[0].NodeID)

	assert.Equal(t, "Submitted", got[1].NewState)
	assert.Equal(t, "Namespace/ns", got[1].NodeID)
	assert.Equal(t, "Observing", got[2].NewState)
	assert.Equal(t, "Ready", got[3].NewState)

	assert.Equal(t, "Succeeded", got[4].NewState)
	assert.Empty(t, got[4].NodeID)
}

func TestPool_BoundsConcurrentProbes(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()

	var mu sync.Mutex
	active, peak := 0, 0
	prober := newFakeProber()
	track := func(int) (gateway.Observation, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return gateway.Observation{Outcome: gateway.OutcomeReady, Detail: "Ready"}, nil
	}

	var specs []graph.NodeSpec
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("n%d", i)
		specs = append(specs, graph.NodeSpec{Kind: graph.KindGeneric, Name: name})
		prober.script["Generic/"+name] = track
	}

	job, err := graph.NewJob("job-pool", "prod", specs)
	require.NoError(t, err)

	opts := testOptions(gw, prober, nil)
	opts.Pool = NewPool(2)

	snap := runToCompletion(t, job, opts)

	assert.Equal(t, graph.JobSucceeded, snap.OverallState)
	assert.LessOrEqual(t, peak, 2, "worker pool must bound concurrent probes")
}
