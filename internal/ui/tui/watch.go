package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/orchestrator"
)

// Run watches one job on a full-screen dashboard until it reaches a terminal
// state or the user quits.
func Run(ctx context.Context, manager *orchestrator.Manager, jobID string) error {
	snap, err := manager.GetSnapshot(ctx, jobID)
	if err != nil {
		return err
	}

	m := NewModel(jobID, snap.ClusterName)
	p := tea.NewProgram(m, tea.WithAltScreen())

	sub := manager.Subscribe(jobID)
	defer manager.Unsubscribe(sub)

	go func() {
		p.Send(SnapshotMsg{Job: snap})
		if snap.OverallState.Terminal() {
			p.Send(DoneMsg{})
			return
		}
		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					p.Send(DoneMsg{})
					return
				}
				p.Send(EventMsg{Event: ev})
				if ev.NodeID == "" && graph.JobState(ev.NewState).Terminal() {
					p.Send(DoneMsg{})
					return
				}
			case <-ctx.Done():
				p.Send(ErrMsg{Err: ctx.Err()})
				return
			}
		}
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	if fm.Err != nil {
		return fm.Err
	}
	if fm.Job != nil && fm.Job.OverallState == graph.JobFailed {
		if failed := fm.Job.FirstFailedNode(); failed != nil {
			return fmt.Errorf("provisioning failed at %s: %s", failed.ID(), failed.Error)
		}
		return fmt.Errorf("provisioning failed")
	}
	return nil
}

// Follow is the plain-text fallback for non-interactive terminals: one line
// per transition until the job is terminal.
func Follow(ctx context.Context, w io.Writer, manager *orchestrator.Manager, jobID string) error {
	sub := manager.Subscribe(jobID)
	defer manager.Unsubscribe(sub)

	snap, err := manager.GetSnapshot(ctx, jobID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "job %s (%s): %s, %d%%\n", jobID, snap.ClusterName, snap.OverallState, snap.ProgressPercent)
	if snap.OverallState.Terminal() {
		return terminalError(snap)
	}

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			subject := ev.NodeID
			if subject == "" {
				subject = "job"
			}
			if ev.Detail != "" {
				fmt.Fprintf(w, "%s  %s -> %s  %s\n", ev.Timestamp.Format("15:04:05"), subject, ev.NewState, ev.Detail)
			} else {
				fmt.Fprintf(w, "%s  %s -> %s\n", ev.Timestamp.Format("15:04:05"), subject, ev.NewState)
			}
			if ev.NodeID == "" && graph.JobState(ev.NewState).Terminal() {
				final, err := manager.GetSnapshot(ctx, jobID)
				if err != nil {
					return err
				}
				return terminalError(final)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func terminalError(job *graph.Job) error {
	if job.OverallState != graph.JobFailed {
		return nil
	}
	if failed := job.FirstFailedNode(); failed != nil {
		return fmt.Errorf("provisioning failed at %s: %s", failed.ID(), failed.Error)
	}
	return fmt.Errorf("provisioning failed")
}
