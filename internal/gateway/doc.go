// Package gateway defines the contracts the orchestrator uses to talk to the
// remote control plane: an apply gateway that submits resource specs and a
// status prober that reports their observed condition.
//
// Both are opaque collaborators. The gateway performs no retries of its own;
// the prober may fail transiently, and transient failures are typed so the
// poller can tell them apart from remote-reported resource failures.
package gateway
