package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/rosahcp/internal/events"
	"github.com/imamik/rosahcp/internal/gateway"
	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/retry"
	"github.com/imamik/rosahcp/internal/store"
)

// PolicySet resolves the retry policy for a node by its resource kind.
type PolicySet struct {
	Default retry.Policy
	PerKind map[graph.NodeKind]retry.Policy
}

// For returns the policy configured for kind, or the default.
func (ps PolicySet) For(kind graph.NodeKind) retry.Policy {
	if p, ok := ps.PerKind[kind]; ok {
		return p
	}
	return ps.Default
}

// Options configures a single job's orchestrator.
type Options struct {
	Gateway      gateway.ApplyGateway
	Prober       gateway.StatusProber
	Policies     PolicySet
	PollInterval time.Duration
	CallTimeout  time.Duration
	Pool         *Pool
	Publisher    *events.Publisher
	Store        store.Store
	Log          logr.Logger

	EnableMetrics bool
}

type cmdKind int

const (
	cmdSubmitResult cmdKind = iota
	cmdProbeResult
	cmdCancel
)

// cmd is one message on the orchestrator's command queue. Submissions and
// probes run concurrently but their results are applied only here, keeping
// the job's node map single-writer.
type cmd struct {
	kind   cmdKind
	nodeID string
	acc    gateway.Acceptance
	obs    gateway.Observation
	err    error
}

// Orchestrator drives one provisioning job to a terminal state.
type Orchestrator struct {
	job  *graph.Job
	opts Options
	log  logr.Logger

	cmds chan cmd
	done chan struct{}

	// snap is the latest immutable snapshot, readable from any goroutine.
	snap atomic.Pointer[graph.Job]

	// Loop-owned state; touched only from Run.
	inflight        int
	cancelRequested bool
	enableMetrics   bool
}

// New creates an orchestrator for the given job. The job may be freshly
// created or reloaded from the store.
func New(job *graph.Job, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.Pool == nil {
		opts.Pool = NewPool(0)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NewPublisher(0)
	}

	o := &Orchestrator{
		job:           job,
		opts:          opts,
		log:           opts.Log.WithValues("job", job.ID, "cluster", job.ClusterName),
		cmds:          make(chan cmd, 2*len(job.Nodes)+4),
		done:          make(chan struct{}),
		enableMetrics: opts.EnableMetrics,
	}
	o.snap.Store(job.Snapshot())
	return o
}

// Snapshot returns the latest consistent copy of the job.
func (o *Orchestrator) Snapshot() *graph.Job { return o.snap.Load() }

// Done is closed when orchestration has finished.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Cancel requests cooperative cancellation: no further submissions or
// probes are scheduled, in-flight calls complete and their results are
// recorded. Safe to call at any time.
func (o *Orchestrator) Cancel() {
	select {
	case o.cmds <- cmd{kind: cmdCancel}:
	case <-o.done:
	}
}

// Run executes the orchestration loop until the job reaches a terminal
// state and all in-flight work has drained. It is the single writer of the
// job's node map.
func (o *Orchestrator) Run(ctx context.Context) {
	defer close(o.done)

	if o.job.OverallState.Terminal() {
		o.publishState()
		return
	}

	o.log.Info("starting orchestration", "nodes", len(o.job.Nodes), "state", o.job.OverallState)

	if o.job.OverallState == graph.JobQueued {
		o.setJobState(graph.JobRunning, "orchestration started")
	}
	o.resumeInflight(ctx)
	o.sequence(ctx)
	o.publishState()

	ctxDone := ctx.Done()
	for {
		if o.finished() {
			break
		}
		select {
		case c := <-o.cmds:
			o.handle(ctx, c)
			o.publishState()
		case <-ctxDone:
			// Process shutdown; treated like a user cancel, but pending
			// gateway calls will abort with the context error.
			o.cancelRequested = true
			ctxDone = nil
		}
	}

	o.log.Info("orchestration finished",
		"state", o.job.OverallState,
		"progress", o.job.ProgressPercent,
		"firstFailed", o.job.FirstFailed,
	)
}

// finished reports whether the loop can exit, marking the job Cancelled if a
// cancel request has drained all in-flight work.
func (o *Orchestrator) finished() bool {
	if o.inflight > 0 {
		return false
	}
	if o.job.OverallState.Terminal() {
		return true
	}
	if o.cancelRequested {
		o.setJobState(graph.JobCancelled, "cancelled; no further resources will be provisioned")
		o.publishState()
		return true
	}
	return false
}

// handle applies one command from the queue.
func (o *Orchestrator) handle(ctx context.Context, c cmd) {
	switch c.kind {
	case cmdCancel:
		if !o.cancelRequested {
			o.log.Info("cancel requested")
			o.cancelRequested = true
		}
	case cmdSubmitResult:
		o.handleSubmitResult(ctx, c)
	case cmdProbeResult:
		o.handleProbeResult(ctx, c)
	}
}

// setJobState records a job-level transition and emits the matching event.
func (o *Orchestrator) setJobState(state graph.JobState, detail string) {
	old := o.job.OverallState
	if old == state {
		return
	}
	o.job.OverallState = state
	o.opts.Publisher.Publish(events.JobEvent{
		JobID:    o.job.ID,
		OldState: string(old),
		NewState: string(state),
		Detail:   detail,
	})
}

// transitionNode moves a node through the state machine, emitting the event
// and recording the metric. An invalid transition is a programming error in
// this package and panics.
func (o *Orchestrator) transitionNode(id string, to graph.NodeState, detail string) {
	from, err := o.job.TransitionNode(id, to)
	if err != nil {
		panic(err)
	}
	o.recordTransition(string(o.job.Node(id).Spec.Kind), string(to))
	o.opts.Publisher.Publish(events.JobEvent{
		JobID:    o.job.ID,
		NodeID:   id,
		OldState: string(from),
		NewState: string(to),
		Detail:   detail,
	})
}

// aggregate recomputes the job-level state and progress after a node
// transition. Progress never decreases; a cancel request freezes the state
// until the loop drains and settles on Cancelled.
func (o *Orchestrator) aggregate() {
	if p := ComputeProgress(o.job); p > o.job.ProgressPercent {
		o.job.ProgressPercent = p
	}

	if o.job.OverallState.Terminal() || o.cancelRequested {
		return
	}
	next := ComputeState(o.job)
	switch next {
	case o.job.OverallState:
	case graph.JobFailed:
		detail := "provisioning failed"
		if failed := o.job.FirstFailedNode(); failed != nil {
			detail = failed.ID() + ": " + failed.Error
		}
		o.setJobState(graph.JobFailed, detail)
	case graph.JobSucceeded:
		o.setJobState(graph.JobSucceeded, "all resources ready")
	default:
		o.setJobState(next, "")
	}
}

// publishState refreshes the shared snapshot and persists it best-effort.
func (o *Orchestrator) publishState() {
	snap := o.job.Snapshot()
	o.snap.Store(snap)

	if o.opts.Store == nil {
		return
	}
	// Persist with an independent context so a process shutdown still
	// records the final state. Transient store errors get a short backoff
	// before the state is abandoned as best-effort.
	pctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := retry.WithExponentialBackoff(pctx, func() error {
		return o.opts.Store.SaveJob(pctx, snap)
	}, retry.WithMaxRetries(3), retry.WithInitialDelay(100*time.Millisecond))
	if err != nil {
		o.log.Error(err, "failed to persist job state")
	}
}

// resumeInflight restarts work for a job reloaded from the store: nodes
// caught in Submitted are resubmitted (the gateway is idempotent), nodes in
// Observing go straight back to probing.
func (o *Orchestrator) resumeInflight(ctx context.Context) {
	for _, id := range o.job.NodeOrder {
		switch o.job.Nodes[id].State {
		case graph.StateSubmitted:
			o.log.Info("resuming submission", "node", id)
			o.startSubmit(ctx, id)
		case graph.StateObserving:
			o.log.Info("resuming observation", "node", id)
			o.startProbe(ctx, id, 0)
		}
	}
}

// isCancellation reports whether err is our own context being torn down
// rather than a verdict from the remote.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
