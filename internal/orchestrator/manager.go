package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/imamik/rosahcp/internal/events"
	"github.com/imamik/rosahcp/internal/gateway"
	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/store"
	"github.com/imamik/rosahcp/internal/util/async"
)

// ManagerOptions configures the orchestration manager.
type ManagerOptions struct {
	Gateway      gateway.ApplyGateway
	Prober       gateway.StatusProber
	Store        store.Store // optional; nil disables durability
	Policies     PolicySet
	PollInterval time.Duration
	CallTimeout  time.Duration
	PoolSize     int
	EventBuffer  int
	Log          logr.Logger

	EnableMetrics bool
}

// Manager owns the shared worker pool and event publisher and runs one
// orchestrator per provisioning job. It is the process's job control
// surface: create, cancel, snapshot, subscribe.
type Manager struct {
	opts ManagerOptions
	pool *Pool
	pub  *events.Publisher
	log  logr.Logger

	mu   sync.Mutex
	jobs map[string]*Orchestrator
	ctx  context.Context

	enableMetrics bool
}

// NewManager creates a manager. Start must be called before jobs are
// created.
func NewManager(opts ManagerOptions) *Manager {
	m := &Manager{
		opts:          opts,
		pool:          NewPool(opts.PoolSize),
		pub:           events.NewPublisher(opts.EventBuffer),
		log:           opts.Log.WithName("orchestrator"),
		jobs:          make(map[string]*Orchestrator),
		enableMetrics: opts.EnableMetrics,
	}
	if opts.EnableMetrics {
		registerDroppedEventsGauge(m.pub.DroppedTotal)
	}
	return m
}

// Start binds the manager to its lifetime context and resumes every
// non-terminal job found in the store. Terminal jobs stay in the store for
// inspection but are not re-orchestrated.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	if m.opts.Store == nil {
		return nil
	}

	ids, err := m.opts.Store.ListJobIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored jobs: %w", err)
	}

	var tasks []async.Task
	for _, id := range ids {
		tasks = append(tasks, async.Task{Name: "resume " + id, Func: func(ctx context.Context) error {
			return m.resumeJob(ctx, id)
		}})
	}
	return async.RunParallel(ctx, tasks)
}

func (m *Manager) resumeJob(ctx context.Context, id string) error {
	job, err := m.opts.Store.LoadJob(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job.OverallState.Terminal() {
		return nil
	}
	m.log.Info("resuming stored job", "job", id, "state", job.OverallState)
	m.launch(job)
	return nil
}

// CreateJob validates the resource specs, builds the job, and starts its
// orchestrator. The returned id is the handle for every later operation.
func (m *Manager) CreateJob(clusterName string, specs []graph.NodeSpec) (string, error) {
	if clusterName == "" {
		return "", fmt.Errorf("cluster name is required")
	}

	job, err := graph.NewJob(uuid.NewString(), clusterName, specs)
	if err != nil {
		return "", err
	}
	m.launch(job)
	return job.ID, nil
}

// launch registers the job's orchestrator and runs it on the manager's
// lifetime context.
func (m *Manager) launch(job *graph.Job) {
	o := New(job, Options{
		Gateway:       m.opts.Gateway,
		Prober:        m.opts.Prober,
		Policies:      m.opts.Policies,
		PollInterval:  m.opts.PollInterval,
		CallTimeout:   m.opts.CallTimeout,
		Pool:          m.pool,
		Publisher:     m.pub,
		Store:         m.opts.Store,
		Log:           m.log,
		EnableMetrics: m.enableMetrics,
	})

	m.mu.Lock()
	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	m.jobs[job.ID] = o
	m.mu.Unlock()

	m.recordJobStarted()
	go func() {
		o.Run(ctx)
		m.recordJobDone(string(o.Snapshot().OverallState))
	}()
}

// CancelJob requests cooperative cancellation of a job.
func (m *Manager) CancelJob(id string) error {
	m.mu.Lock()
	o, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return store.ErrNotFound
	}
	o.Cancel()
	return nil
}

// GetSnapshot returns the current state of a job. Jobs no longer in memory
// are looked up in the store.
func (m *Manager) GetSnapshot(ctx context.Context, id string) (*graph.Job, error) {
	m.mu.Lock()
	o, ok := m.jobs[id]
	m.mu.Unlock()
	if ok {
		return o.Snapshot(), nil
	}
	if m.opts.Store != nil {
		return m.opts.Store.LoadJob(ctx, id)
	}
	return nil, store.ErrNotFound
}

// ListJobs returns snapshots of all in-memory jobs, newest first.
func (m *Manager) ListJobs() []*graph.Job {
	m.mu.Lock()
	snaps := make([]*graph.Job, 0, len(m.jobs))
	for _, o := range m.jobs {
		snaps = append(snaps, o.Snapshot())
	}
	m.mu.Unlock()

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps
}

// Subscribe attaches a subscriber to one job's event stream, or to all jobs
// when id is empty.
func (m *Manager) Subscribe(jobID string) *events.Subscriber {
	return m.pub.Subscribe(jobID)
}

// Unsubscribe releases a subscriber and its buffer.
func (m *Manager) Unsubscribe(s *events.Subscriber) {
	m.pub.Unsubscribe(s)
}

// WaitJob blocks until the job's orchestrator finishes or ctx is done.
func (m *Manager) WaitJob(ctx context.Context, id string) error {
	m.mu.Lock()
	o, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return store.ErrNotFound
	}
	select {
	case <-o.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
