package orchestrator

import (
	"context"

	"github.com/imamik/rosahcp/internal/graph"
)

// sequence submits every Pending node whose dependencies are all Ready.
// It does nothing once the job has failed or a cancel was requested; a
// dependency that will never be Ready keeps its dependents Pending forever,
// which is exactly the "never submitted" picture the snapshot should show.
func (o *Orchestrator) sequence(ctx context.Context) {
	if o.cancelRequested || o.job.OverallState.Terminal() {
		return
	}
	for _, id := range o.job.NodeOrder {
		node := o.job.Nodes[id]
		if node.State != graph.StatePending || !node.DependenciesReady(o.job.Nodes) {
			continue
		}
		o.transitionNode(id, graph.StateSubmitted, "dependencies ready")
		o.startSubmit(ctx, id)
	}
}

// startSubmit hands one node to the apply gateway on the shared pool and
// reports the outcome back through the command queue.
func (o *Orchestrator) startSubmit(ctx context.Context, nodeID string) {
	spec := o.job.Nodes[nodeID].Spec
	o.inflight++

	go func() {
		if err := o.opts.Pool.Acquire(ctx); err != nil {
			o.cmds <- cmd{kind: cmdSubmitResult, nodeID: nodeID, err: err}
			return
		}
		defer o.opts.Pool.Release()

		cctx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()

		acc, err := o.opts.Gateway.Submit(cctx, spec)
		o.cmds <- cmd{kind: cmdSubmitResult, nodeID: nodeID, acc: acc, err: err}
	}()
}

// handleSubmitResult applies a gateway response. Rejections are terminal and
// consume no probe budget; acceptance moves the node to Observing and starts
// its probe cadence.
func (o *Orchestrator) handleSubmitResult(ctx context.Context, c cmd) {
	o.inflight--
	node := o.job.Node(c.nodeID)

	if c.err != nil {
		if isCancellation(c.err) {
			// Our own shutdown, not a remote verdict. The node stays
			// Submitted and is resubmitted on resume.
			o.recordSubmission("aborted")
			o.log.Info("submission aborted", "node", c.nodeID, "reason", c.err.Error())
			return
		}
		o.recordSubmission("rejected")
		node.Error = c.err.Error()
		o.transitionNode(c.nodeID, graph.StateFailed, node.Error)
		o.aggregate()
		return
	}

	detail := "accepted"
	if c.acc.AlreadyExists {
		detail = "already exists"
		o.recordSubmission("exists")
	} else {
		o.recordSubmission("accepted")
	}
	node.RemoteRef = c.acc.RemoteRef
	o.transitionNode(c.nodeID, graph.StateObserving, detail)

	if !o.cancelRequested {
		o.startProbe(ctx, c.nodeID, o.opts.PollInterval)
	}
}
