package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/metrics"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/repository"
)

// jobTaskService is the concrete implementation of JobTaskService
type jobTaskService struct {
	jobs  repository.JobRepository
	tasks repository.JobTaskRepository
	now   func() time.Time
	log   zerolog.Logger
}

func newJobTaskService(jobs repository.JobRepository, tasks repository.JobTaskRepository, now func() time.Time, log zerolog.Logger) *jobTaskService {
	return &jobTaskService{
		jobs:  jobs,
		tasks: tasks,
		now:   now,
		log:   log.With().Str("service", "job_task").Logger(),
	}
}

// Create adds a task to a job
func (s *jobTaskService) Create(ctx context.Context, jobID string, req *models.CreateJobTaskRequest) (*models.JobTask, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	priority := models.JobPriorityNormal
	if req.Priority != "" {
		priority = models.JobTaskPriority(req.Priority)
	}

	now := s.now().UTC()
	task := &models.JobTask{
		ID:             uuid.New().String(),
		JobID:          jobID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		ScopeReference: req.ScopeReference,
		Status:         models.JobTaskNotStarted,
		Priority:       priority,
		EstimatedHours: req.EstimatedHours,
		DueDate:        req.DueDate,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(req.AssignedTo) > 0 {
		task.AssignedTo = req.AssignedTo
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.log.Info().Str("job_id", jobID).Str("task_id", task.ID).Msg("Job task created")
	return task, nil
}

// ListByJob returns the tasks of a job
func (s *jobTaskService) ListByJob(ctx context.Context, jobID string) ([]*models.JobTask, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	return s.tasks.ListByJob(ctx, jobID)
}

func (s *jobTaskService) get(ctx context.Context, id string) (*models.JobTask, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return task, nil
}

// Authorize returns the task when user may work on its job
func (s *jobTaskService) Authorize(ctx context.Context, user *models.User, id string) (*models.JobTask, error) {
	scope := access.ScopeFor(user)
	if scope.Denied {
		return nil, ErrForbidden
	}

	task, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.GetByID(ctx, task.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil || !assignedTo(job, scope) {
		return nil, ErrForbidden
	}
	return task, nil
}

// Transition applies a status action and stores exactly one log with it
func (s *jobTaskService) Transition(ctx context.Context, id string, action lifecycle.TaskAction, actor, note string) (*models.JobTask, *models.TaskLog, error) {
	task, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	from := task.Status
	entry, err := lifecycle.ApplyJobTask(task, action, actor, note, s.now().UTC())
	if err != nil {
		metrics.ObserveTransition("job_task", string(action), err, true)
		return nil, nil, err
	}
	entry.ID = uuid.New().String()

	err = s.tasks.ApplyTransition(ctx, task, entry)
	metrics.ObserveTransition("job_task", string(action), err, false)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("task_id", id).
		Str("actor", actor).
		Str("from", string(from)).
		Str("to", string(task.Status)).
		Msg("Job task status changed")

	return task, entry, nil
}

// AddLog appends a manual progress or note entry
func (s *jobTaskService) AddLog(ctx context.Context, id, actor string, req *models.AddTaskLogRequest) (*models.TaskLog, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	entry := &models.TaskLog{
		ID:          uuid.New().String(),
		TaskID:      id,
		StaffName:   actor,
		LogType:     models.LogType(req.LogType),
		HoursWorked: req.HoursWorked,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   s.now().UTC(),
	}
	if err := lifecycle.ValidateManualLog(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.tasks.AddLog(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Progress returns the log and assignment history of a task with its
// derived percentage
func (s *jobTaskService) Progress(ctx context.Context, id string) (*models.TaskProgress, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	logs, err := s.tasks.ListLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	assignments, err := s.tasks.ListAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []*models.TaskAssignment{}
	}

	return &models.TaskProgress{
		TaskID:      id,
		Progress:    lifecycle.Progress(logs),
		Logs:        logs,
		Assignments: assignments,
	}, nil
}
