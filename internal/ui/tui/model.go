package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/rosahcp/internal/events"
	"github.com/imamik/rosahcp/internal/graph"
)

// maxRecentEvents bounds the event log shown at the bottom of the dashboard.
const maxRecentEvents = 8

// Model is the Bubble Tea model for the job dashboard.
type Model struct {
	JobID       string
	ClusterName string

	// Job is the latest snapshot; the model owns this copy and applies
	// incoming transitions to it between snapshots.
	Job *graph.Job

	Recent []events.JobEvent

	// Animation
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool

	StartTime time.Time
}

// NewModel creates a dashboard model for one job.
func NewModel(jobID, clusterName string) Model {
	return Model{
		JobID:       jobID,
		ClusterName: clusterName,
		StartTime:   time.Now(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case SnapshotMsg:
		m.Job = msg.Job
		if m.ClusterName == "" {
			m.ClusterName = msg.Job.ClusterName
		}

	case EventMsg:
		m.applyEvent(msg.Event)

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// applyEvent folds one transition into the displayed state.
func (m *Model) applyEvent(ev events.JobEvent) {
	m.Recent = append(m.Recent, ev)
	if len(m.Recent) > maxRecentEvents {
		m.Recent = m.Recent[len(m.Recent)-maxRecentEvents:]
	}

	if m.Job == nil {
		return
	}
	if ev.NodeID == "" {
		m.Job.OverallState = graph.JobState(ev.NewState)
		return
	}
	if node := m.Job.Node(ev.NodeID); node != nil {
		node.State = graph.NodeState(ev.NewState)
		if ev.Detail != "" {
			node.LastObserved = ev.Detail
		}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
