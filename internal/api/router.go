package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/config"
	"github.com/opsdesk-api/internal/idempotency"
	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/realtime"
	"github.com/opsdesk-api/internal/service"
	"github.com/opsdesk-api/internal/validation"
)

// HealthChecker reports on the backing store for /health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// Dependencies are the infrastructure pieces the router wires in
type Dependencies struct {
	Tokens      *auth.Manager
	Idempotency *idempotency.Store
	Hub         *realtime.Hub // nil disables /v1/changes
	Database    HealthChecker // nil skips the store check
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, deps Dependencies, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := validation.RegisterWithGin(); err != nil {
		log.Error().Err(err).Msg("Failed to register request validators")
	}

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server))

	// Handlers
	taskHandler := NewTaskHandler(services, log)
	jobHandler := NewJobHandler(services, log)
	jobTaskHandler := NewJobTaskHandler(services, log)
	userHandler := NewUserHandler(services, log)
	pipelineHandler := NewPipelineHandler(services, log)
	changesHandler := NewChangesHandler(deps.Hub, log)

	// Health check
	router.GET("/health", healthCheck(deps.Database))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/v1")
	v1.Use(auth.Middleware(deps.Tokens, services.User, log))
	v1.Use(idempotencyMiddleware(deps.Idempotency, log))
	{
		v1.GET("/me", userHandler.Me)
		v1.GET("/changes", requireActive(), changesHandler.Stream)
		v1.GET("/dashboard", requirePage(access.PageDashboard), pipelineHandler.Dashboard)

		tasks := v1.Group("/tasks", requirePage(access.PageGlobalTasks))
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.POST("/:id/start", taskHandler.Transition(lifecycle.ActionStart))
			tasks.POST("/:id/complete", taskHandler.Transition(lifecycle.ActionComplete))
			tasks.POST("/:id/block", taskHandler.Transition(lifecycle.ActionBlock))
			tasks.POST("/:id/resume", taskHandler.Transition(lifecycle.ActionResume))
			tasks.POST("/:id/timer/start", taskHandler.StartTimer)
			tasks.POST("/:id/timer/stop", taskHandler.StopTimer)
		}

		// Field workers reach job routes through Time Tracking, limited to
		// the jobs they are assigned to. Planning routes stay on the Jobs page.
		planning := requirePage(access.PageJobs)
		onJob := requireJobAccess(services.Job, log)
		onJobTask := requireJobTaskAccess(services.JobTask, log)

		jobs := v1.Group("/jobs", requireAnyPage(access.PageJobs, access.PageTimeTracking))
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.POST("", planning, jobHandler.CreateJob)
			jobs.GET("/:id", onJob, jobHandler.GetJob)
			jobs.POST("/:id/start", onJob, jobHandler.Transition(lifecycle.JobStart))
			jobs.POST("/:id/complete", onJob, jobHandler.Transition(lifecycle.JobComplete))
			jobs.POST("/:id/cancel", planning, jobHandler.Transition(lifecycle.JobCancel))
			jobs.PATCH("/:id/times", planning, jobHandler.CorrectTimes)
			jobs.GET("/:id/staff", planning, jobHandler.StaffTimes)
			jobs.POST("/:id/staff/check-in", onJob, jobHandler.CheckIn)
			jobs.POST("/:id/staff/check-out", onJob, jobHandler.CheckOut)
			jobs.GET("/:id/wrapup", onJob, jobHandler.GetWrapup)
			jobs.PUT("/:id/wrapup", onJob, jobHandler.SaveWrapup)
			jobs.GET("/:id/tasks", onJob, jobTaskHandler.ListTasks)
			jobs.POST("/:id/tasks", planning, jobTaskHandler.CreateTask)
		}

		jobTasks := v1.Group("/job-tasks", requireAnyPage(access.PageJobs, access.PageTimeTracking), onJobTask)
		{
			jobTasks.POST("/:id/start", jobTaskHandler.Transition(lifecycle.ActionStart))
			jobTasks.POST("/:id/complete", jobTaskHandler.Transition(lifecycle.ActionComplete))
			jobTasks.POST("/:id/block", jobTaskHandler.Transition(lifecycle.ActionBlock))
			jobTasks.POST("/:id/resume", jobTaskHandler.Transition(lifecycle.ActionResume))
			jobTasks.GET("/:id/logs", jobTaskHandler.ListLogs)
			jobTasks.POST("/:id/logs", jobTaskHandler.AddLog)
		}

		users := v1.Group("/users", requirePage(access.PageUsers))
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.PATCH("/:id/role", userHandler.UpdateRole)
			users.PATCH("/:id/active", userHandler.SetActive)
		}

		v1.GET("/leads", requirePage(access.PageLeads), pipelineHandler.ListLeads)
		v1.GET("/analytics/leads", requireAnalytics(), pipelineHandler.LeadAnalytics)

		proposals := v1.Group("/proposals", requirePage(access.PageProposals))
		{
			proposals.GET("", pipelineHandler.ListProposals)
			proposals.POST("/:id/revisions", pipelineHandler.CreateRevision)
		}
	}

	return router
}

const healthTimeout = 2 * time.Second

// healthCheck returns the health status, 503 when the store is unreachable
func healthCheck(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "opsdesk-api",
		}
		if db == nil {
			c.JSON(http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		stats := db.Stats()
		body["connections"] = gin.H{
			"open":   stats.OpenConnections,
			"in_use": stats.InUse,
			"idle":   stats.Idle,
		}

		status := http.StatusOK
		if err := db.HealthCheck(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = err.Error()
		} else {
			body["database"] = "ok"
		}
		c.JSON(status, body)
	}
}
