package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/imamik/rosahcp/internal/graph"
)

// ErrNotFound is returned when no job exists under the requested id.
var ErrNotFound = errors.New("job not found")

// Store persists jobs keyed by job id.
type Store interface {
	// SaveJob writes the full job state, replacing any previous version.
	SaveJob(ctx context.Context, job *graph.Job) error

	// LoadJob returns the job stored under id, or ErrNotFound.
	LoadJob(ctx context.Context, id string) (*graph.Job, error)

	// ListJobIDs returns the ids of all stored jobs.
	ListJobIDs(ctx context.Context) ([]string, error)

	// DeleteJob removes the job stored under id. Deleting a missing job
	// is not an error.
	DeleteJob(ctx context.Context, id string) error
}

func encodeJob(job *graph.Job) ([]byte, error) {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	return data, nil
}

func decodeJob(data []byte) (*graph.Job, error) {
	var job graph.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("decoded job has no id")
	}
	return &job, nil
}
