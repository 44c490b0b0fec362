package retry

import (
	"math/rand"
	"time"
)

// GiveUpReason explains why a policy stopped retrying.
type GiveUpReason string

const (
	// ReasonDeadlineExceeded means the overall deadline elapsed.
	ReasonDeadlineExceeded GiveUpReason = "deadline-exceeded"
	// ReasonAttemptsExhausted means the attempt budget ran out.
	ReasonAttemptsExhausted GiveUpReason = "attempts-exhausted"
)

// Policy bounds how long and how often an observing node is re-probed.
// Policies are injected per job; resource kinds warrant different deadlines
// (a network stack legitimately takes longer than a secret).
type Policy struct {
	MaxAttempts int           `json:"maxAttempts" yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `json:"baseDelay" yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `json:"maxDelay" yaml:"max_delay" mapstructure:"max_delay"`
	Jitter      time.Duration `json:"jitter" yaml:"jitter" mapstructure:"jitter"`
	Deadline    time.Duration `json:"deadline" yaml:"deadline" mapstructure:"deadline"`
}

// Decision is the outcome of consulting a policy.
type Decision struct {
	GiveUp bool
	Reason GiveUpReason
	Delay  time.Duration
}

// Decide maps (attempt count, elapsed since first submission) to either a
// wait before the next probe or a give-up. attempt counts probes already
// made; the first consultation passes attempt=1.
//
// The deadline check takes precedence over the attempt budget.
func (p Policy) Decide(attempt int, elapsed time.Duration) Decision {
	if p.Deadline > 0 && elapsed >= p.Deadline {
		return Decision{GiveUp: true, Reason: ReasonDeadlineExceeded}
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return Decision{GiveUp: true, Reason: ReasonAttemptsExhausted}
	}
	return Decision{Delay: p.backoff(attempt)}
}

// backoff computes min(maxDelay, base*2^attempt) with bounded jitter.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt && delay < p.MaxDelay; i++ {
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(2*p.Jitter))) - p.Jitter
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
