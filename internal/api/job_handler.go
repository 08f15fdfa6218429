package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/service"
)

// JobHandler handles job, staff check-in and wrap-up endpoints
type JobHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(services *service.Services, log zerolog.Logger) *JobHandler {
	return &JobHandler{
		services: services,
		log:      log.With().Str("handler", "job").Logger(),
	}
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid date %q", service.ErrValidation, v)
}

// ListJobs handles GET /v1/jobs?status=&from=&to=
func (h *JobHandler) ListJobs(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	filter := models.JobFilter{
		Status:     models.JobStatus(c.Query("status")),
		AssignedTo: access.ScopeFor(auth.CurrentUser(c)).JobsAssignedTo,
		From:       from,
		To:         to,
	}

	jobs, err := h.services.Job.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob handles GET /v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.services.Job.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// CreateJob handles POST /v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req models.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	job, err := h.services.Job.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// Transition returns the handler for POST /v1/jobs/:id/<action>
func (h *JobHandler) Transition(action lifecycle.JobAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := h.services.Job.Transition(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), action)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// CorrectTimes handles PATCH /v1/jobs/:id/times
func (h *JobHandler) CorrectTimes(c *gin.Context) {
	var req models.EditJobTimesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	job, err := h.services.Job.CorrectTimes(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// StaffTimes handles GET /v1/jobs/:id/staff
func (h *JobHandler) StaffTimes(c *gin.Context) {
	rows, err := h.services.Job.StaffTimes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if rows == nil {
		rows = []*models.StaffTime{}
	}
	c.JSON(http.StatusOK, gin.H{"staff": rows})
}

// CheckIn handles POST /v1/jobs/:id/staff/check-in
func (h *JobHandler) CheckIn(c *gin.Context) {
	h.staffAction(c, h.services.Job.CheckIn)
}

// CheckOut handles POST /v1/jobs/:id/staff/check-out
func (h *JobHandler) CheckOut(c *gin.Context) {
	h.staffAction(c, h.services.Job.CheckOut)
}

type staffFunc func(ctx context.Context, jobID, staffName string) (*models.StaffTime, bool, error)

func (h *JobHandler) staffAction(c *gin.Context, fn staffFunc) {
	var req models.StaffActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	st, changed, err := fn(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.StaffName))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff_time": st, "changed": changed})
}

// GetWrapup handles GET /v1/jobs/:id/wrapup
func (h *JobHandler) GetWrapup(c *gin.Context) {
	items, err := h.services.Job.Wrapup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// SaveWrapup handles PUT /v1/jobs/:id/wrapup
func (h *JobHandler) SaveWrapup(c *gin.Context) {
	var req models.SaveWrapupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	items, err := h.services.Job.SaveWrapup(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
