package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/metrics"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/repository"
)

// taskService is the concrete implementation of TaskService
type taskService struct {
	tasks   repository.TaskRepository
	entries repository.TimeEntryRepository
	now     func() time.Time
	log     zerolog.Logger
}

func newTaskService(tasks repository.TaskRepository, entries repository.TimeEntryRepository, now func() time.Time, log zerolog.Logger) *taskService {
	return &taskService{
		tasks:   tasks,
		entries: entries,
		now:     now,
		log:     log.With().Str("service", "task").Logger(),
	}
}

// Create validates and stores a global task. Tag links are written after
// the task; a failure there is logged and does not fail the request.
func (s *taskService) Create(ctx context.Context, req *models.CreateTaskRequest) (*models.GlobalTask, error) {
	title := strings.TrimSpace(req.Title)
	createdBy := strings.TrimSpace(req.CreatedBy)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if createdBy == "" {
		return nil, fmt.Errorf("%w: created_by is required", ErrValidation)
	}

	status := models.GlobalTaskTodo
	if req.Status != "" {
		status = models.GlobalTaskStatus(req.Status)
		if !models.ValidGlobalTaskStatuses[status] {
			return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, req.Status)
		}
	}
	priority := models.GlobalPriorityMedium
	if req.Priority != "" {
		priority = models.GlobalTaskPriority(req.Priority)
		if !models.ValidGlobalTaskPriorities[priority] {
			return nil, fmt.Errorf("%w: invalid priority %q", ErrValidation, req.Priority)
		}
	}

	now := s.now().UTC()
	task := &models.GlobalTask{
		ID:                uuid.New().String(),
		Title:             title,
		Description:       optional(req.Description),
		Status:            status,
		Priority:          priority,
		CategoryID:        optional(req.CategoryID),
		DueDate:           req.DueDate,
		EstimatedHours:    req.EstimatedHours.Ptr(),
		Notes:             optional(req.Notes),
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: optional(req.RecurrencePattern),
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
		Tags:              []models.TaskTag{},
	}
	if len(req.AssignedTo) > 0 {
		task.AssignedTo = req.AssignedTo
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if len(req.Tags) > 0 {
		if err := s.tasks.LinkTags(ctx, task.ID, req.Tags); err != nil {
			metrics.PartialFailuresTotal.WithLabelValues("task_tags").Inc()
			s.log.Error().Err(err).
				Str("task_id", task.ID).
				Strs("tags", req.Tags).
				Msg("Failed to link tags to task")
		}
	}

	s.log.Info().
		Str("task_id", task.ID).
		Str("created_by", task.CreatedBy).
		Msg("Task created")

	return task, nil
}

// List returns tasks matching the filter, newest first
func (s *taskService) List(ctx context.Context, filter models.TaskFilter) ([]*models.GlobalTask, error) {
	if filter.Status != "" && !models.ValidGlobalTaskStatuses[filter.Status] {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, filter.Status)
	}
	return s.tasks.List(ctx, filter)
}

// Get returns one task
func (s *taskService) Get(ctx context.Context, id string) (*models.GlobalTask, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return task, nil
}

// Transition applies a status action to a task
func (s *taskService) Transition(ctx context.Context, id string, action lifecycle.TaskAction) (*models.GlobalTask, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := task.Status
	if err := lifecycle.ApplyGlobalTask(task, action, s.now().UTC()); err != nil {
		metrics.ObserveTransition("task", string(action), err, true)
		return nil, err
	}

	err = s.tasks.UpdateStatus(ctx, task)
	metrics.ObserveTransition("task", string(action), err, false)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("task_id", id).
		Str("from", string(from)).
		Str("to", string(task.Status)).
		Msg("Task status changed")

	return task, nil
}

// StartTimer stops every running timer of the user and starts one on the
// task, moving the task into progress when needed.
func (s *taskService) StartTimer(ctx context.Context, taskID, userID string) (*models.TimeEntry, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	action, err := lifecycle.TimerStartAction(task.Status)
	if err != nil {
		metrics.ObserveTransition("timer", "start", err, true)
		return nil, err
	}

	now := s.now().UTC()
	open, err := s.entries.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, e := range open {
		lifecycle.CloseEntry(e, now)
	}

	var moved *models.GlobalTask
	if action != "" {
		if err := lifecycle.ApplyGlobalTask(task, action, now); err != nil {
			return nil, err
		}
		moved = task
	}

	entry := &models.TimeEntry{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		UserID:    userID,
		StartTime: now,
	}
	err = s.entries.SwitchTimer(ctx, open, entry, moved)
	metrics.ObserveTransition("timer", "start", err, false)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("task_id", taskID).
		Str("user_id", userID).
		Int("stopped", len(open)).
		Msg("Timer started")

	return entry, nil
}

// StopTimer closes the user's running timer on the task
func (s *taskService) StopTimer(ctx context.Context, taskID, userID string) (*models.TimeEntry, error) {
	entry, err := s.entries.GetOpen(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: no running timer", ErrNotFound)
	}

	lifecycle.CloseEntry(entry, s.now().UTC())
	if err := s.entries.Close(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("task_id", taskID).
		Str("user_id", userID).
		Float64("hours", *entry.Hours).
		Msg("Timer stopped")

	return entry, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

