package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_DeliversInOrder(t *testing.T) {
	t.Parallel()

	p := NewPublisher(16)
	sub := p.Subscribe("job-1")
	defer p.Unsubscribe(sub)

	for i := 0; i < 5; i++ {
		p.Publish(JobEvent{JobID: "job-1", NodeID: fmt.Sprintf("n%d", i), OldState: "Pending", NewState: "Submitted"})
	}

	for i := 0; i < 5; i++ {
		ev := receiveEvent(t, sub)
		assert.Equal(t, fmt.Sprintf("n%d", i), ev.NodeID)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestPublisher_FiltersByJob(t *testing.T) {
	t.Parallel()

	p := NewPublisher(16)
	sub := p.Subscribe("job-1")
	defer p.Unsubscribe(sub)

	p.Publish(JobEvent{JobID: "job-2", NewState: "Running"})
	p.Publish(JobEvent{JobID: "job-1", NewState: "Running"})

	ev := receiveEvent(t, sub)
	assert.Equal(t, "job-1", ev.JobID)
}

func TestPublisher_AllJobsSubscription(t *testing.T) {
	t.Parallel()

	p := NewPublisher(16)
	sub := p.Subscribe("")
	defer p.Unsubscribe(sub)

	p.Publish(JobEvent{JobID: "a", NewState: "Running"})
	p.Publish(JobEvent{JobID: "b", NewState: "Running"})

	assert.Equal(t, "a", receiveEvent(t, sub).JobID)
	assert.Equal(t, "b", receiveEvent(t, sub).JobID)
}

func TestPublisher_SlowSubscriberDropsOldest(t *testing.T) {
	t.Parallel()

	p := NewPublisher(4)
	sub := p.Subscribe("job-1")
	defer p.Unsubscribe(sub)

	// Nobody reads; the queue can hold 4 events plus at most one parked in
	// the delivery channel. Publish well past that.
	for i := 0; i < 20; i++ {
		p.Publish(JobEvent{JobID: "job-1", NodeID: fmt.Sprintf("n%02d", i)})
	}

	require.Eventually(t, func() bool {
		return sub.Dropped() > 0
	}, time.Second, 5*time.Millisecond, "overflow must be counted, not blocked on")

	// The newest event is retained; whatever survived is still in order.
	var got []string
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case ev := <-sub.Events():
			got = append(got, ev.NodeID)
		case <-timeout:
			t.Fatal("timed out draining subscriber")
		}
	}
	assert.Less(t, got[0], got[1])

	assert.GreaterOrEqual(t, p.DroppedTotal(), sub.Dropped())
}

func TestPublisher_UnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	p := NewPublisher(4)
	sub := p.Subscribe("job-1")
	p.Unsubscribe(sub)
	p.Unsubscribe(sub) // idempotent

	require.Eventually(t, func() bool {
		select {
		case _, open := <-sub.Events():
			return !open
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Publishing after unsubscribe must not panic or block.
	p.Publish(JobEvent{JobID: "job-1"})
}

func receiveEvent(t *testing.T, sub *Subscriber) JobEvent {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return JobEvent{}
	}
}
