// Package orchestrator sequences resource creation for provisioning jobs and
// polls the remote control plane until each job's resource graph converges.
//
// One orchestrator loop runs per job and is the only writer of that job's
// node map: submissions and probes run on a shared bounded worker pool and
// report back through the loop's command queue, so concurrent results are
// applied at a single mutation point. The sequencer gates submission on
// dependency readiness, the poller drives each observing node to a terminal
// state under its retry policy, and the aggregator recomputes the job-level
// state after every transition.
package orchestrator
