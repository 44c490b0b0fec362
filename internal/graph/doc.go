// Package graph defines the declarative resource graph a provisioning job
// works through: node specs with dependency edges, runtime node state, and
// the job that owns them.
//
// All node state changes go through Job.Transition so the forward-only state
// machine is enforced in one place. Everything in this package is pure data;
// the orchestrator package drives the transitions.
package graph
