package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Cancel asks the running service to cancel a job.
func Cancel(ctx context.Context, w io.Writer, serverURL, jobID string) error {
	url := strings.TrimSuffix(serverURL, "/") + "/v1/jobs/" + jobID

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach service at %s: %w", serverURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusAccepted:
		fmt.Fprintf(w, "cancellation requested for job %s\n", jobID)
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("job %s not found", jobID)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("cancel failed: %s", body.Error)
	}
	return fmt.Errorf("cancel failed: %s", resp.Status)
}
