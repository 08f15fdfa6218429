package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/config"
	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/repository"
)

var (
	// ErrNotFound is returned when the addressed record does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation wraps input problems detected before any write
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned when an action needs a capability the user lacks
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when the request was based on outdated state
	ErrConflict = errors.New("conflict")
)

// TaskService defines the interface for global task operations
type TaskService interface {
	Create(ctx context.Context, req *models.CreateTaskRequest) (*models.GlobalTask, error)
	List(ctx context.Context, filter models.TaskFilter) ([]*models.GlobalTask, error)
	Get(ctx context.Context, id string) (*models.GlobalTask, error)
	Transition(ctx context.Context, id string, action lifecycle.TaskAction) (*models.GlobalTask, error)
	StartTimer(ctx context.Context, taskID, userID string) (*models.TimeEntry, error)
	StopTimer(ctx context.Context, taskID, userID string) (*models.TimeEntry, error)
}

// JobService defines the interface for site job operations
type JobService interface {
	Create(ctx context.Context, req *models.CreateJobRequest) (*models.Job, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	Authorize(ctx context.Context, user *models.User, id string) (*models.Job, error)
	List(ctx context.Context, filter models.JobFilter) ([]*models.Job, error)
	Transition(ctx context.Context, user *models.User, id string, action lifecycle.JobAction) (*models.Job, error)
	CorrectTimes(ctx context.Context, user *models.User, id string, req *models.EditJobTimesRequest) (*models.Job, error)
	CheckIn(ctx context.Context, jobID, staffName string) (*models.StaffTime, bool, error)
	CheckOut(ctx context.Context, jobID, staffName string) (*models.StaffTime, bool, error)
	StaffTimes(ctx context.Context, jobID string) ([]*models.StaffTime, error)
	Wrapup(ctx context.Context, jobID string) ([]*models.WrapupItem, error)
	SaveWrapup(ctx context.Context, jobID string, req *models.SaveWrapupRequest) ([]*models.WrapupItem, error)
}

// JobTaskService defines the interface for job-scoped task operations
type JobTaskService interface {
	Create(ctx context.Context, jobID string, req *models.CreateJobTaskRequest) (*models.JobTask, error)
	ListByJob(ctx context.Context, jobID string) ([]*models.JobTask, error)
	Transition(ctx context.Context, id string, action lifecycle.TaskAction, actor, note string) (*models.JobTask, *models.TaskLog, error)
	AddLog(ctx context.Context, id, actor string, req *models.AddTaskLogRequest) (*models.TaskLog, error)
	Progress(ctx context.Context, id string) (*models.TaskProgress, error)
	Authorize(ctx context.Context, user *models.User, id string) (*models.JobTask, error)
}

// UserService defines the interface for user administration
type UserService interface {
	Get(ctx context.Context, id string) (*models.User, error)
	GetByAuthID(ctx context.Context, authUserID string) (*models.User, error)
	Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
}

// PipelineService defines the interface for leads and proposals
type PipelineService interface {
	ListLeads(ctx context.Context, scope access.DataScope) ([]*models.Lead, error)
	ListProposals(ctx context.Context, scope access.DataScope) ([]*models.Proposal, error)
	CreateRevision(ctx context.Context, proposalID, userID string) (*models.Proposal, error)
}

// AnalyticsService defines the interface for dashboard figures
type AnalyticsService interface {
	LeadAnalytics(ctx context.Context) (*models.LeadAnalytics, error)
	Dashboard(ctx context.Context, user *models.User) (*models.DashboardKPIs, error)
}

// Services holds all service interfaces
type Services struct {
	Task      TaskService
	Job       JobService
	JobTask   JobTaskService
	User      UserService
	Pipeline  PipelineService
	Analytics AnalyticsService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	clock := time.Now
	policy := lifecycle.JobPolicy{StrictCompletion: cfg.Lifecycle.StrictJobCompletion}

	return &Services{
		Task:      newTaskService(repos.Task, repos.TimeEntry, clock, log),
		Job:       newJobService(repos.Job, repos.StaffTime, repos.Wrapup, policy, clock, log),
		JobTask:   newJobTaskService(repos.Job, repos.JobTask, clock, log),
		User:      newUserService(repos.User, log),
		Pipeline:  newPipelineService(repos.Lead, repos.Proposal, clock, log),
		Analytics: newAnalyticsService(repos, clock, log),
	}
}
