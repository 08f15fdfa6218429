package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/service"
)

// JobTaskHandler handles job-scoped task endpoints
type JobTaskHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewJobTaskHandler creates a new JobTaskHandler
func NewJobTaskHandler(services *service.Services, log zerolog.Logger) *JobTaskHandler {
	return &JobTaskHandler{
		services: services,
		log:      log.With().Str("handler", "job_task").Logger(),
	}
}

// actorName is the name written to task logs
func actorName(user *models.User) string {
	switch {
	case user.FullName != "":
		return user.FullName
	case user.Email != "":
		return user.Email
	}
	return user.ID
}

// ListTasks handles GET /v1/jobs/:id/tasks
func (h *JobTaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.services.JobTask.ListByJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if tasks == nil {
		tasks = []*models.JobTask{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateTask handles POST /v1/jobs/:id/tasks
func (h *JobTaskHandler) CreateTask(c *gin.Context) {
	var req models.CreateJobTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.services.JobTask.Create(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Transition returns the handler for POST /v1/job-tasks/:id/<action>. The
// body is optional and may carry a note.
func (h *JobTaskHandler) Transition(action lifecycle.TaskAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TransitionRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondBindError(c, err)
			return
		}

		user := auth.CurrentUser(c)
		task, entry, err := h.services.JobTask.Transition(c.Request.Context(), c.Param("id"), action, actorName(user), req.Note)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"task": task, "log": entry})
	}
}

// ListLogs handles GET /v1/job-tasks/:id/logs
func (h *JobTaskHandler) ListLogs(c *gin.Context) {
	progress, err := h.services.JobTask.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// AddLog handles POST /v1/job-tasks/:id/logs
func (h *JobTaskHandler) AddLog(c *gin.Context) {
	var req models.AddTaskLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	entry, err := h.services.JobTask.AddLog(c.Request.Context(), c.Param("id"), actorName(auth.CurrentUser(c)), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
