package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/planadapt-backend/internal/http/response"
	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/jobs/scheduler"
)

type JobRunner interface {
	RunJob(ctx context.Context, name string) (runtime.Report, error)
}

type JobHandler struct {
	runner JobRunner
}

func NewJobHandler(runner JobRunner) *JobHandler {
	return &JobHandler{runner: runner}
}

// POST /internal/jobs/:name
func (h *JobHandler) RunJob(c *gin.Context) {
	rep, err := h.runner.RunJob(c.Request.Context(), c.Param("name"))
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		response.RespondError(c, http.StatusNotFound, "unknown_job", err)
		return
	case errors.Is(err, scheduler.ErrJobRunning):
		response.RespondError(c, http.StatusConflict, "job_running", err)
		return
	case err != nil:
		response.RespondErr(c, err)
		return
	}
	if rep.Error != "" {
		c.JSON(http.StatusInternalServerError, gin.H{"report": rep})
		return
	}
	response.RespondOK(c, gin.H{"report": rep})
}
