package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"predict-backtest/internal/api/models"
	"predict-backtest/internal/job"
)

// JobHandler serves the serverless-style run endpoints.
type JobHandler struct {
	jobs *job.Handler
}

func NewJobHandler(jobs *job.Handler) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Run handles POST /run and POST /runsync. Jobs execute synchronously, so
// both answer with the finished output. A job that fails still returns 200;
// the envelope status tells the outcome.
func (h *JobHandler) Run(c *gin.Context) {
	var req models.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	resp := h.jobs.Handle(c.Request.Context(), job.Job{ID: req.ID, Input: req.Input})
	status := models.StatusCompleted
	if resp.Failed() {
		status = models.StatusFailed
	}
	c.JSON(http.StatusOK, models.RunResponse{
		ID:     resp.JobID,
		Status: status,
		Output: resp,
	})
}
