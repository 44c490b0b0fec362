// Package store persists provisioning jobs keyed by job id so orchestration
// can resume across process restarts.
//
// Two backends are provided: a local file store for single-host deployments
// and an S3-compatible object store. Both serialize the full job (node set
// included) as JSON; the apply gateway's idempotent submission contract makes
// the at-most-one duplicate submission after a crash acceptable.
package store
