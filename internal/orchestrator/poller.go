package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/rosahcp/internal/gateway"
	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/retry"
)

// startProbe schedules one probe of an Observing node after the given delay.
// Each node polls independently; the shared pool only bounds how many probes
// run at the same instant.
func (o *Orchestrator) startProbe(ctx context.Context, nodeID string, delay time.Duration) {
	node := o.job.Nodes[nodeID]
	spec := node.Spec
	ref := node.RemoteRef
	o.inflight++

	go func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				o.cmds <- cmd{kind: cmdProbeResult, nodeID: nodeID, err: gateway.Transient(ctx.Err())}
				return
			}
		}

		if err := o.opts.Pool.Acquire(ctx); err != nil {
			o.cmds <- cmd{kind: cmdProbeResult, nodeID: nodeID, err: gateway.Transient(err)}
			return
		}
		defer o.opts.Pool.Release()

		cctx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()

		start := time.Now()
		obs, err := o.opts.Prober.Probe(cctx, spec, ref)
		o.recordProbe(probeResultLabel(obs, err), time.Since(start).Seconds())
		o.cmds <- cmd{kind: cmdProbeResult, nodeID: nodeID, obs: obs, err: err}
	}()
}

func probeResultLabel(obs gateway.Observation, err error) string {
	if err != nil {
		return "error"
	}
	switch obs.Outcome {
	case gateway.OutcomeReady:
		return "ready"
	case gateway.OutcomeFailed:
		return "failed"
	default:
		return "observing"
	}
}

// handleProbeResult applies one probe outcome to its node. Transient prober
// errors never change the node's state: they burn attempt budget and consult
// the policy. Remote-reported failures are terminal immediately. A node that
// is still converging keeps its fixed cadence, but the policy's deadline and
// attempt bounds apply independently of the remote's condition.
func (o *Orchestrator) handleProbeResult(ctx context.Context, c cmd) {
	o.inflight--
	node := o.job.Node(c.nodeID)
	if node == nil || node.State != graph.StateObserving {
		// Stale result for a node that already settled.
		return
	}

	node.Attempt++
	node.LastObservedAt = time.Now().UTC()
	policy := o.opts.Policies.For(node.Spec.Kind)
	elapsed := time.Since(node.FirstSubmittedAt)

	if c.err != nil {
		decision := policy.Decide(node.Attempt, elapsed)
		if decision.GiveUp {
			o.timeOut(c.nodeID, decision.Reason, c.err)
			return
		}
		o.log.V(1).Info("transient probe error, will retry",
			"node", c.nodeID, "attempt", node.Attempt, "error", c.err.Error())
		if !o.cancelRequested {
			o.startProbe(ctx, c.nodeID, decision.Delay)
		}
		return
	}

	node.LastObserved = c.obs.Detail

	switch c.obs.Outcome {
	case gateway.OutcomeReady:
		o.transitionNode(c.nodeID, graph.StateReady, c.obs.Detail)
		o.aggregate()
		o.sequence(ctx)

	case gateway.OutcomeFailed:
		node.Error = c.obs.Detail
		o.transitionNode(c.nodeID, graph.StateFailed, c.obs.Detail)
		o.aggregate()

	default:
		decision := policy.Decide(node.Attempt, elapsed)
		if decision.GiveUp {
			o.timeOut(c.nodeID, decision.Reason, nil)
			return
		}
		if !o.cancelRequested {
			o.startProbe(ctx, c.nodeID, o.opts.PollInterval)
		}
	}
}

// timeOut marks a node TimedOut, recording a diagnostic that distinguishes
// infrastructure slowness from an explicit remote failure.
func (o *Orchestrator) timeOut(nodeID string, reason retry.GiveUpReason, lastErr error) {
	node := o.job.Node(nodeID)
	detail := fmt.Sprintf("gave up waiting for convergence (%s) after %d probes", reason, node.Attempt)
	if lastErr != nil {
		detail = fmt.Sprintf("%s; last error: %v", detail, lastErr)
	}
	node.Error = detail
	o.transitionNode(nodeID, graph.StateTimedOut, detail)
	o.aggregate()
}
