package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/orchestrator"
	"github.com/imamik/rosahcp/internal/ui/benchmarks"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)

	if m.Job != nil {
		renderProgressBar(&b, m)
		renderNodes(&b, m)
	} else {
		b.WriteString(dimStyle.Render("  waiting for job state..."))
		b.WriteString("\n")
	}

	if len(m.Recent) > 0 {
		renderRecentEvents(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("rosahcp: %s", m.ClusterName)
	if m.JobID != "" {
		title += fmt.Sprintf(" (%s)", shortID(m.JobID))
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Job == nil:
		status += dimStyle.Render("Connecting...")
	case m.Job.OverallState == graph.JobSucceeded:
		status += readyStyle.Render("Succeeded")
	case m.Job.OverallState == graph.JobFailed:
		status += failedStyle.Render("Failed")
	case m.Job.OverallState == graph.JobCancelled:
		status += warningStyle.Render("Cancelled")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(string(m.Job.OverallState))
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := orchestrator.ComputeProgress(m.Job)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := barWidth * progress / 100
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	fmt.Fprintf(b, "  %s %d%%\n", bar, progress)
}

func renderNodes(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Resources"))
	b.WriteString("\n")

	for _, id := range m.Job.NodeOrder {
		node := m.Job.Node(id)
		if node == nil {
			continue
		}

		var icon string
		var style styleFunc
		switch node.State {
		case graph.StateReady:
			icon = checkMark
			style = sf(readyStyle)
		case graph.StateFailed:
			icon = crossMark
			style = sf(failedStyle)
		case graph.StateTimedOut:
			icon = timedMark
			style = sf(failedStyle)
		case graph.StateSubmitted, graph.StateObserving:
			icon = currentSpinner(m.SpinnerFrame)
			style = sf(activeStyle)
		default:
			icon = pending
			style = sf(dimStyle)
		}

		line := fmt.Sprintf("    %s %-36s", style(icon), style(id))
		if detail := nodeDetail(node); detail != "" {
			line += dimStyle.Render(detail)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func nodeDetail(node *graph.Node) string {
	switch node.State {
	case graph.StateFailed, graph.StateTimedOut:
		if node.Error != "" {
			return node.Error
		}
	case graph.StateObserving:
		if node.LastObserved != "" {
			return fmt.Sprintf("%s (probe %d)", node.LastObserved, node.Attempt)
		}
	}
	return ""
}

func renderRecentEvents(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Events"))
	b.WriteString("\n")

	for _, ev := range m.Recent {
		subject := ev.NodeID
		if subject == "" {
			subject = "job"
		}
		line := fmt.Sprintf("    %s  %s -> %s", ev.Timestamp.Format("15:04:05"), subject, ev.NewState)
		if ev.Detail != "" {
			line += "  " + ev.Detail
		}
		b.WriteString(dimStyle.Render(line))
		b.WriteString("\n")
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := time.Since(m.StartTime).Round(time.Second)
	line := fmt.Sprintf("  elapsed %s", elapsed)
	if m.Job != nil && !m.Job.OverallState.Terminal() {
		if eta := benchmarks.EstimateRemaining(m.Job, time.Now()); eta > 0 {
			line += fmt.Sprintf("  |  eta ~%s", eta.Round(time.Second))
		}
	}
	line += "  |  q to quit"
	b.WriteString(footerStyle.Render(line))
	b.WriteString("\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
