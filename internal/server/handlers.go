package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/store"
)

// CreateJobRequest is the POST /v1/jobs body.
type CreateJobRequest struct {
	ClusterName string           `json:"clusterName" binding:"required"`
	Resources   []graph.NodeSpec `json:"resources" binding:"required"`
}

// JobSummary is the list-view projection of a job.
type JobSummary struct {
	ID              string         `json:"id"`
	ClusterName     string         `json:"clusterName"`
	OverallState    graph.JobState `json:"overallState"`
	ProgressPercent int            `json:"progressPercent"`
	FirstFailed     string         `json:"firstFailed,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func summarize(job *graph.Job) JobSummary {
	return JobSummary{
		ID:              job.ID,
		ClusterName:     job.ClusterName,
		OverallState:    job.OverallState,
		ProgressPercent: job.ProgressPercent,
		FirstFailed:     job.FirstFailed,
		CreatedAt:       job.CreatedAt,
	}
}

func (s *Server) handleCreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.manager.CreateJob(req.ClusterName, req.Resources)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.log.Info("job created", "job", id, "cluster", req.ClusterName, "resources", len(req.Resources))
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleListJobs(c *gin.Context) {
	jobs := s.manager.ListJobs()
	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, summarize(job))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": summaries})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.manager.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleCancelJob(c *gin.Context) {
	id := c.Param("id")
	if err := s.manager.CancelJob(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.log.Info("job cancellation requested", "job", id)
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": "cancelling"})
}
