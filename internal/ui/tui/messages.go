// Package tui provides a Bubble Tea-based terminal UI for watching a
// provisioning job converge.
package tui

import (
	"github.com/imamik/rosahcp/internal/events"
	"github.com/imamik/rosahcp/internal/graph"
)

// SnapshotMsg replaces the displayed job state wholesale.
type SnapshotMsg struct {
	Job *graph.Job
}

// EventMsg carries one observed transition.
type EventMsg struct {
	Event events.JobEvent
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the job reached a terminal state.
type DoneMsg struct{}
