package graph

import (
	"fmt"
	"time"
)

// NodeKind classifies a resource node within the provisioning graph.
type NodeKind string

const (
	KindNamespace    NodeKind = "Namespace"
	KindNetwork      NodeKind = "Network"
	KindRoleConfig   NodeKind = "RoleConfig"
	KindControlPlane NodeKind = "ControlPlane"
	KindCluster      NodeKind = "Cluster"
	KindSecret       NodeKind = "Secret"
	KindGeneric      NodeKind = "Generic"
)

// Valid reports whether k is a known node kind.
func (k NodeKind) Valid() bool {
	switch k {
	case KindNamespace, KindNetwork, KindRoleConfig, KindControlPlane,
		KindCluster, KindSecret, KindGeneric:
		return true
	}
	return false
}

// NodeState is the lifecycle state of a single resource node.
type NodeState string

const (
	StatePending   NodeState = "Pending"
	StateSubmitted NodeState = "Submitted"
	StateObserving NodeState = "Observing"
	StateReady     NodeState = "Ready"
	StateFailed    NodeState = "Failed"
	StateTimedOut  NodeState = "TimedOut"
)

// Terminal reports whether the state permits no further transition.
func (s NodeState) Terminal() bool {
	switch s {
	case StateReady, StateFailed, StateTimedOut:
		return true
	}
	return false
}

// Capability tags a node spec with a trait the prober selection logic
// consults generically, instead of maintaining per-component membership lists.
type Capability string

const (
	CapHasPod     Capability = "HasPod"
	CapHasService Capability = "HasService"
	CapHasCRD     Capability = "HasCRD"
	CapHasRoute   Capability = "HasRoute"
)

// NodeSpec is the declarative description of one resource to create.
type NodeSpec struct {
	Kind         NodeKind     `json:"kind" yaml:"kind"`
	Name         string       `json:"name" yaml:"name"`
	Namespace    string       `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	DependsOn    []string     `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Capabilities []Capability `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`

	// Manifest is the rendered resource manifest handed to the apply
	// gateway verbatim. The orchestrator never inspects it.
	Manifest []byte `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// ID returns the node's unique identifier within its job.
func (s NodeSpec) ID() string {
	if s.Namespace == "" {
		return fmt.Sprintf("%s/%s", s.Kind, s.Name)
	}
	return fmt.Sprintf("%s/%s/%s", s.Kind, s.Namespace, s.Name)
}

// HasCapability reports whether the spec carries the given capability tag.
func (s NodeSpec) HasCapability(c Capability) bool {
	for _, have := range s.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Node is the runtime state of one declared resource within a job.
type Node struct {
	Spec NodeSpec `json:"spec"`

	State     NodeState `json:"state"`
	Attempt   int       `json:"attempt"`
	RemoteRef string    `json:"remoteRef,omitempty"`

	// FirstSubmittedAt anchors the retry policy's overall deadline.
	FirstSubmittedAt time.Time `json:"firstSubmittedAt,omitempty"`

	// LastObserved is the most recent condition label reported by the
	// status prober. Opaque; not interpolated between polls.
	LastObserved   string    `json:"lastObserved,omitempty"`
	LastObservedAt time.Time `json:"lastObservedAt,omitempty"`

	Error string `json:"error,omitempty"`
}

// ID returns the node's unique identifier within its job.
func (n *Node) ID() string { return n.Spec.ID() }

// DependenciesReady reports whether every dependency of n is Ready in nodes.
func (n *Node) DependenciesReady(nodes map[string]*Node) bool {
	for _, dep := range n.Spec.DependsOn {
		d, ok := nodes[dep]
		if !ok || d.State != StateReady {
			return false
		}
	}
	return true
}
