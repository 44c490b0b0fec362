package handlers

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/imamik/rosahcp/internal/graph"
)

// Status prints one job's state from the store.
func Status(ctx context.Context, w io.Writer, configPath, jobID string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("status requires a persistent store (store.backend is %q)", cfg.Store.Backend)
	}

	job, err := st.LoadJob(ctx, jobID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Job:      %s\n", job.ID)
	fmt.Fprintf(w, "Cluster:  %s\n", job.ClusterName)
	fmt.Fprintf(w, "State:    %s (%d%%)\n", job.OverallState, job.ProgressPercent)
	fmt.Fprintf(w, "Created:  %s\n", job.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if failed := job.FirstFailedNode(); failed != nil {
		fmt.Fprintf(w, "Failed:   %s: %s\n", failed.ID(), failed.Error)
	}

	fmt.Fprintln(w, "\nResources:")
	for _, id := range job.NodeOrder {
		node := job.Node(id)
		line := fmt.Sprintf("  %-12s %s", node.State, id)
		switch node.State {
		case graph.StateObserving:
			if node.LastObserved != "" {
				line += fmt.Sprintf("  %s (probe %d)", node.LastObserved, node.Attempt)
			}
		case graph.StateFailed, graph.StateTimedOut:
			if node.Error != "" {
				line += "  " + node.Error
			}
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// List prints a one-line summary per stored job, newest first.
func List(ctx context.Context, w io.Writer, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("list requires a persistent store (store.backend is %q)", cfg.Store.Backend)
	}

	ids, err := st.ListJobIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "no jobs")
		return nil
	}

	jobs := make([]*graph.Job, 0, len(ids))
	for _, id := range ids {
		job, err := st.LoadJob(ctx, id)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	fmt.Fprintf(w, "%-36s  %-20s  %-10s  %s\n", "JOB", "CLUSTER", "STATE", "PROGRESS")
	for _, job := range jobs {
		fmt.Fprintf(w, "%-36s  %-20s  %-10s  %d%%\n", job.ID, job.ClusterName, job.OverallState, job.ProgressPercent)
	}
	return nil
}
