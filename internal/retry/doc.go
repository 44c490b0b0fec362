// Package retry provides the backoff policy consulted by the convergence
// poller and a generic retry wrapper for one-shot operations.
//
// Policy.Decide is a pure function of (attempt, elapsed); it never sleeps.
// The deadline check always wins over the attempt budget, so a slow remote
// is reported as a timeout rather than as exhausted attempts.
package retry
