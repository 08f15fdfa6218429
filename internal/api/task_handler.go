package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/service"
)

// TaskHandler handles global task endpoints
type TaskHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(services *service.Services, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		services: services,
		log:      log.With().Str("handler", "task").Logger(),
	}
}

// CreateTask handles POST /v1/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.services.Task.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"task":    task,
		"message": "Task created successfully",
	})
}

// ListTasks handles GET /v1/tasks. Users without the all-tasks capability
// only see tasks assigned to them.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filter := models.TaskFilter{
		Status:     models.GlobalTaskStatus(c.Query("status")),
		CategoryID: c.Query("category"),
		AssignedTo: c.Query("assigned_to"),
		CreatedBy:  c.Query("created_by"),
	}
	if scope := access.ScopeFor(auth.CurrentUser(c)); scope.TasksAssignedTo != "" {
		filter.AssignedTo = scope.TasksAssignedTo
	}

	tasks, err := h.services.Task.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if tasks == nil {
		tasks = []*models.GlobalTask{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tasks":   tasks,
	})
}

// GetTask handles GET /v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.services.Task.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// Transition returns the handler for POST /v1/tasks/:id/<action>
func (h *TaskHandler) Transition(action lifecycle.TaskAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := h.services.Task.Transition(c.Request.Context(), c.Param("id"), action)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
	}
}

// StartTimer handles POST /v1/tasks/:id/timer/start
func (h *TaskHandler) StartTimer(c *gin.Context) {
	entry, err := h.services.Task.StartTimer(c.Request.Context(), c.Param("id"), auth.CurrentUser(c).ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entry": entry})
}

// StopTimer handles POST /v1/tasks/:id/timer/stop
func (h *TaskHandler) StopTimer(c *gin.Context) {
	entry, err := h.services.Task.StopTimer(c.Request.Context(), c.Param("id"), auth.CurrentUser(c).ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entry": entry})
}
