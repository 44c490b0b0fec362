package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imamik/rosahcp/internal/graph"
)

// FileStore keeps one JSON file per job under a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create job store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// SaveJob implements Store. The write is atomic (temp file + rename) so a
// crash mid-write never leaves a truncated job behind.
func (s *FileStore) SaveJob(_ context.Context, job *graph.Job) error {
	data, err := encodeJob(job)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, job.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write job %s: %w", job.ID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(job.ID)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to store job %s: %w", job.ID, err)
	}
	return nil
}

// LoadJob implements Store.
func (s *FileStore) LoadJob(_ context.Context, id string) (*graph.Job, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	return decodeJob(data)
}

// ListJobIDs implements Store.
func (s *FileStore) ListJobIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list job store directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// DeleteJob implements Store.
func (s *FileStore) DeleteJob(_ context.Context, id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return nil
}
