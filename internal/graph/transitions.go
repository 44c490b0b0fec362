package graph

import "fmt"

// ErrInvalidTransition reports an attempted node state change that the state
// machine does not permit. It indicates a programming error in the
// orchestrator, not a remote condition, and is treated as fatal by callers.
type ErrInvalidTransition struct {
	NodeID string
	From   NodeState
	To     NodeState
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s for node %s", e.From, e.To, e.NodeID)
}

// allowedTransitions is the full forward-only transition table:
// Pending -> Submitted -> Observing -> {Ready, Failed, TimedOut}.
// Pending and Submitted may fail directly (gateway rejection); terminal
// states permit nothing.
var allowedTransitions = map[NodeState][]NodeState{
	StatePending:   {StateSubmitted, StateFailed},
	StateSubmitted: {StateObserving, StateFailed},
	StateObserving: {StateReady, StateFailed, StateTimedOut},
	StateReady:     nil,
	StateFailed:    nil,
	StateTimedOut:  nil,
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to NodeState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves a node to the given state, enforcing the transition table.
func (n *Node) transition(to NodeState) error {
	if !CanTransition(n.State, to) {
		return &ErrInvalidTransition{NodeID: n.ID(), From: n.State, To: to}
	}
	n.State = to
	return nil
}
