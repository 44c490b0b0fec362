package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize bounds a subscriber's queue unless overridden.
const DefaultBufferSize = 256

// JobEvent is one observed state transition, at job or node level.
// NodeID is empty for job-level transitions.
type JobEvent struct {
	JobID     string    `json:"jobId"`
	NodeID    string    `json:"nodeId,omitempty"`
	OldState  string    `json:"oldState"`
	NewState  string    `json:"newState"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// Subscriber receives events for one job (or all jobs) in occurrence order.
type Subscriber struct {
	jobID string
	out   chan JobEvent

	mu    sync.Mutex
	queue []JobEvent
	max   int
	wake  chan struct{}
	done  chan struct{}

	dropped atomic.Uint64
}

// Events returns the subscriber's delivery channel. It is closed when the
// subscriber is unsubscribed.
func (s *Subscriber) Events() <-chan JobEvent { return s.out }

// Dropped returns how many events were discarded because the subscriber
// could not keep up.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// enqueue appends an event, discarding the oldest entry when full.
// Never blocks.
func (s *Subscriber) enqueue(ev JobEvent) {
	s.mu.Lock()
	if len(s.queue) >= s.max {
		s.queue = s.queue[1:]
		s.dropped.Add(1)
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump drains the queue into the delivery channel until unsubscribed.
func (s *Subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		var next *JobEvent
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			next = &ev
		}
		s.mu.Unlock()

		if next == nil {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.out <- *next:
		case <-s.done:
			return
		}
	}
}

// Publisher fans out job events to any number of subscribers.
type Publisher struct {
	mu         sync.Mutex
	subs       map[*Subscriber]struct{}
	bufferSize int
}

// NewPublisher creates a publisher with the given per-subscriber buffer
// bound; size <= 0 uses DefaultBufferSize.
func NewPublisher(bufferSize int) *Publisher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Publisher{
		subs:       make(map[*Subscriber]struct{}),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a subscriber for the given job id; an empty id
// subscribes to every job.
func (p *Publisher) Subscribe(jobID string) *Subscriber {
	s := &Subscriber{
		jobID: jobID,
		out:   make(chan JobEvent),
		max:   p.bufferSize,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	p.mu.Lock()
	p.subs[s] = struct{}{}
	p.mu.Unlock()

	go s.pump()
	return s
}

// Unsubscribe releases the subscriber and closes its delivery channel.
// Safe to call more than once.
func (p *Publisher) Unsubscribe(s *Subscriber) {
	p.mu.Lock()
	_, present := p.subs[s]
	delete(p.subs, s)
	p.mu.Unlock()

	if present {
		close(s.done)
	}
}

// Publish fans ev out to all matching subscribers. Never blocks; slow
// subscribers lose their oldest buffered events instead.
func (p *Publisher) Publish(ev JobEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	p.mu.Lock()
	targets := make([]*Subscriber, 0, len(p.subs))
	for s := range p.subs {
		if s.jobID == "" || s.jobID == ev.JobID {
			targets = append(targets, s)
		}
	}
	p.mu.Unlock()

	for _, s := range targets {
		s.enqueue(ev)
	}
}

// DroppedTotal sums dropped-event counts across current subscribers.
func (p *Publisher) DroppedTotal() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var total uint64
	for s := range p.subs {
		total += s.Dropped()
	}
	return total
}
