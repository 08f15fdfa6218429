package models

import (
	"time"
)

// GlobalTaskStatus is the status vocabulary of the global_tasks table
type GlobalTaskStatus string

const (
	GlobalTaskTodo       GlobalTaskStatus = "todo"
	GlobalTaskInProgress GlobalTaskStatus = "in_progress"
	GlobalTaskDone       GlobalTaskStatus = "done"
	GlobalTaskBlocked    GlobalTaskStatus = "blocked"
)

// ValidGlobalTaskStatuses defines allowed global task statuses
var ValidGlobalTaskStatuses = map[GlobalTaskStatus]bool{
	GlobalTaskTodo:       true,
	GlobalTaskInProgress: true,
	GlobalTaskDone:       true,
	GlobalTaskBlocked:    true,
}

// GlobalTaskPriority is the priority vocabulary of the global_tasks table
type GlobalTaskPriority string

const (
	GlobalPriorityLow    GlobalTaskPriority = "low"
	GlobalPriorityMedium GlobalTaskPriority = "medium"
	GlobalPriorityHigh   GlobalTaskPriority = "high"
	GlobalPriorityUrgent GlobalTaskPriority = "urgent"
)

// ValidGlobalTaskPriorities defines allowed global task priorities
var ValidGlobalTaskPriorities = map[GlobalTaskPriority]bool{
	GlobalPriorityLow:    true,
	GlobalPriorityMedium: true,
	GlobalPriorityHigh:   true,
	GlobalPriorityUrgent: true,
}

// TaskCategory groups global tasks
type TaskCategory struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Color string `json:"color,omitempty" db:"color"`
}

// TaskTag labels global tasks
type TaskTag struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Color string `json:"color,omitempty" db:"color"`
}

// GlobalTask is a task not bound to a single job
type GlobalTask struct {
	ID                string             `json:"id" db:"id"`
	Title             string             `json:"title" db:"title"`
	Description       *string            `json:"description" db:"description"`
	Status            GlobalTaskStatus   `json:"status" db:"status"`
	Priority          GlobalTaskPriority `json:"priority" db:"priority"`
	CategoryID        *string            `json:"category_id" db:"category_id"`
	DueDate           *time.Time         `json:"due_date" db:"due_date"`
	EstimatedHours    *float64           `json:"estimated_hours" db:"estimated_hours"`
	Notes             *string            `json:"notes" db:"notes"`
	IsRecurring       bool               `json:"is_recurring" db:"is_recurring"`
	RecurrencePattern *string            `json:"recurrence_pattern" db:"recurrence_pattern"`
	AssignedTo        []string           `json:"assigned_to" db:"assigned_to"` // nil when unassigned
	CreatedBy         string             `json:"created_by" db:"created_by"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`

	Category *TaskCategory `json:"category,omitempty" db:"-"`
	Tags     []TaskTag     `json:"tags" db:"-"`
}

// TaskFilter holds the optional, AND-combined filters of GET /v1/tasks
type TaskFilter struct {
	Status     GlobalTaskStatus
	CategoryID string
	AssignedTo string
	CreatedBy  string
}

// CreateTaskRequest is the body of POST /v1/tasks. Defaults are applied by
// the task service, not by binding.
type CreateTaskRequest struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Status            string     `json:"status" binding:"omitempty,oneof=todo in_progress done blocked"`
	Priority          string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	CategoryID        string     `json:"category_id"`
	DueDate           *time.Time `json:"due_date"`
	EstimatedHours    Hours      `json:"estimated_hours"`
	Notes             string     `json:"notes"`
	IsRecurring       bool       `json:"is_recurring"`
	RecurrencePattern string     `json:"recurrence_pattern"`
	AssignedTo        []string   `json:"assigned_to"`
	Tags              []string   `json:"tags"`
	CreatedBy         string     `json:"created_by"`
}

// JobTaskStatus is the status vocabulary of the job_tasks table
type JobTaskStatus string

const (
	JobTaskNotStarted JobTaskStatus = "not_started"
	JobTaskInProgress JobTaskStatus = "in_progress"
	JobTaskCompleted  JobTaskStatus = "completed"
	JobTaskBlocked    JobTaskStatus = "blocked"
)

// JobTaskPriority is the priority vocabulary of the job_tasks table
type JobTaskPriority string

const (
	JobPriorityLow      JobTaskPriority = "low"
	JobPriorityNormal   JobTaskPriority = "normal"
	JobPriorityHigh     JobTaskPriority = "high"
	JobPriorityCritical JobTaskPriority = "critical"
)

// JobTask is a unit of work scoped to one job
type JobTask struct {
	ID             string          `json:"id" db:"id"`
	JobID          string          `json:"job_id" db:"job_id"`
	Title          string          `json:"title" db:"title"`
	Description    string          `json:"description" db:"description"`
	ScopeReference string          `json:"scope_reference" db:"scope_reference"`
	Status         JobTaskStatus   `json:"status" db:"status"`
	Priority       JobTaskPriority `json:"priority" db:"priority"`
	EstimatedHours float64         `json:"estimated_hours" db:"estimated_hours"`
	DueDate        *time.Time      `json:"due_date" db:"due_date"`
	AssignedTo     []string        `json:"assigned_to" db:"assigned_to"`
	Notes          string          `json:"notes" db:"notes"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// CreateJobTaskRequest is the body of POST /v1/jobs/:id/tasks
type CreateJobTaskRequest struct {
	Title          string     `json:"title" binding:"required,notblank"`
	Description    string     `json:"description"`
	ScopeReference string     `json:"scope_reference"`
	Priority       string     `json:"priority" binding:"omitempty,oneof=low normal high critical"`
	EstimatedHours float64    `json:"estimated_hours" binding:"gte=0"`
	DueDate        *time.Time `json:"due_date"`
	AssignedTo     []string   `json:"assigned_to"`
	Notes          string     `json:"notes"`
}

// TaskAssignment records a staff member assigned to a job task
type TaskAssignment struct {
	ID           string     `json:"id" db:"id"`
	TaskID       string     `json:"task_id" db:"task_id"`
	StaffName    string     `json:"staff_name" db:"staff_name"`
	AssignedAt   time.Time  `json:"assigned_at" db:"assigned_at"`
	UnassignedAt *time.Time `json:"unassigned_at" db:"unassigned_at"`
}

// LogType classifies a task log entry
type LogType string

const (
	LogTypeStart    LogType = "start"
	LogTypeProgress LogType = "progress"
	LogTypeComplete LogType = "complete"
	LogTypeNote     LogType = "note"
	LogTypeBlock    LogType = "block"
)

// TaskLog is an append-only audit entry for a job task
type TaskLog struct {
	ID          string    `json:"id" db:"id"`
	TaskID      string    `json:"task_id" db:"task_id"`
	StaffName   string    `json:"staff_name" db:"staff_name"`
	LogType     LogType   `json:"log_type" db:"log_type"`
	HoursWorked *float64  `json:"hours_worked" db:"hours_worked"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AddTaskLogRequest is the body of POST /v1/job-tasks/:id/logs
type AddTaskLogRequest struct {
	LogType     string   `json:"log_type" binding:"required,oneof=progress note"`
	HoursWorked *float64 `json:"hours_worked" binding:"omitempty,gte=0"`
	Notes       string   `json:"notes"`
}

// TimeEntry is a timer run of one user against one global task
type TimeEntry struct {
	ID        string     `json:"id" db:"id"`
	TaskID    string     `json:"task_id" db:"task_id"`
	UserID    string     `json:"user_id" db:"user_id"`
	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time" db:"end_time"`
	Hours     *float64   `json:"hours" db:"hours"`
}

// TaskProgress is a job task's log history with its derived percentage
type TaskProgress struct {
	TaskID      string            `json:"task_id"`
	Progress    int               `json:"progress"`
	Logs        []TaskLog         `json:"logs"`
	Assignments []*TaskAssignment `json:"assignments"`
}

// TransitionRequest carries the optional note of a status action
type TransitionRequest struct {
	Note string `json:"note"`
}
