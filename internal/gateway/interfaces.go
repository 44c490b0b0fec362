package gateway

import (
	"context"

	"github.com/imamik/rosahcp/internal/graph"
)

// Acceptance is the successful result of submitting a resource spec.
type Acceptance struct {
	// RemoteRef identifies the accepted resource on the remote control
	// plane. Resubmitting an already-accepted spec returns the same ref.
	RemoteRef string

	// AlreadyExists is set when the remote resource predates this
	// submission. Treated the same as a fresh acceptance.
	AlreadyExists bool
}

// ApplyGateway submits resource specs to the remote control plane.
//
// Submit must be idempotent: resubmitting an already-accepted spec returns
// Accepted again (with the same ref) rather than erroring, since the
// sequencer may resubmit after a process restart. Any returned error is a
// rejection and terminal for the node.
type ApplyGateway interface {
	Submit(ctx context.Context, spec graph.NodeSpec) (Acceptance, error)
}

// Outcome classifies what the prober saw.
type Outcome string

const (
	// OutcomeReady means the resource reached its success condition.
	OutcomeReady Outcome = "Ready"
	// OutcomeObserving means the resource is not yet terminal.
	OutcomeObserving Outcome = "Observing"
	// OutcomeFailed means the remote reports a terminal failure condition.
	OutcomeFailed Outcome = "Failed"
)

// Observation is one probe result for a submitted resource.
type Observation struct {
	Outcome Outcome

	// Detail is the remote's condition label or diagnostic text. Opaque to
	// the poller; recorded on the node verbatim.
	Detail string
}

// StatusProber reports the current observed condition of a submitted
// resource. A returned error means the prober could not answer (network
// blip, API throttle); it carries no verdict about the resource itself and
// is retried per policy.
type StatusProber interface {
	Probe(ctx context.Context, spec graph.NodeSpec, remoteRef string) (Observation, error)
}
