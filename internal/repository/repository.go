package repository

import (
	"context"
	"errors"

	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/models"
)

// ErrStale is returned when a write was based on a row another writer
// already superseded
var ErrStale = errors.New("record was superseded")

// UserRepository defines the interface for user profile operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByAuthID(ctx context.Context, authUserID string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (bool, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

// JobRepository defines the interface for site job operations
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, filter models.JobFilter) ([]*models.Job, error)
	// Update writes status, start_time and end_time. Last write wins.
	Update(ctx context.Context, job *models.Job) error
	Count(ctx context.Context, filter models.JobFilter) (int, error)
}

// StaffTimeRepository defines the interface for job check-in records
type StaffTimeRepository interface {
	Get(ctx context.Context, jobID, staffName string) (*models.StaffTime, error)
	ListByJob(ctx context.Context, jobID string) ([]*models.StaffTime, error)
	// Save inserts or updates the single row of a staff+job pair
	Save(ctx context.Context, st *models.StaffTime) error
}

// WrapupRepository defines the interface for end-of-job checklists
type WrapupRepository interface {
	ListByJob(ctx context.Context, jobID string) ([]*models.WrapupItem, error)
	Replace(ctx context.Context, jobID string, items []*models.WrapupItem) error
}

// TaskRepository defines the interface for global task operations
type TaskRepository interface {
	Create(ctx context.Context, task *models.GlobalTask) error
	LinkTags(ctx context.Context, taskID string, tagIDs []string) error
	GetByID(ctx context.Context, id string) (*models.GlobalTask, error)
	// List returns tasks newest first with category and tags attached
	List(ctx context.Context, filter models.TaskFilter) ([]*models.GlobalTask, error)
	UpdateStatus(ctx context.Context, task *models.GlobalTask) error
	Count(ctx context.Context, filter models.TaskFilter) (int, error)
}

// JobTaskRepository defines the interface for job-scoped task operations
type JobTaskRepository interface {
	Create(ctx context.Context, task *models.JobTask) error
	GetByID(ctx context.Context, id string) (*models.JobTask, error)
	ListByJob(ctx context.Context, jobID string) ([]*models.JobTask, error)
	// ApplyTransition stores the new status and its log atomically
	ApplyTransition(ctx context.Context, task *models.JobTask, entry *models.TaskLog) error
	AddLog(ctx context.Context, entry *models.TaskLog) error
	ListLogs(ctx context.Context, taskID string) ([]models.TaskLog, error)
	ListAssignments(ctx context.Context, taskID string) ([]*models.TaskAssignment, error)
}

// TimeEntryRepository defines the interface for task timers
type TimeEntryRepository interface {
	ListOpenByUser(ctx context.Context, userID string) ([]*models.TimeEntry, error)
	GetOpen(ctx context.Context, taskID, userID string) (*models.TimeEntry, error)
	// SwitchTimer closes entries, opens one and optionally moves the task,
	// all in one transaction. task may be nil.
	SwitchTimer(ctx context.Context, closing []*models.TimeEntry, opening *models.TimeEntry, task *models.GlobalTask) error
	Close(ctx context.Context, entry *models.TimeEntry) error
}

// LeadRepository defines the interface for lead operations
type LeadRepository interface {
	List(ctx context.Context, assignedTo string) ([]*models.Lead, error)
	Count(ctx context.Context, assignedTo string) (int, error)
}

// ProposalRepository defines the interface for proposal operations
type ProposalRepository interface {
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
	List(ctx context.Context, createdBy string) ([]*models.Proposal, error)
	// CreateRevision retires base as latest and inserts rev in one
	// transaction. It returns ErrStale when base is not the latest.
	CreateRevision(ctx context.Context, base, rev *models.Proposal) error
	CountOpen(ctx context.Context, createdBy string) (int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	User      UserRepository
	Job       JobRepository
	StaffTime StaffTimeRepository
	Wrapup    WrapupRepository
	Task      TaskRepository
	JobTask   JobTaskRepository
	TimeEntry TimeEntryRepository
	Lead      LeadRepository
	Proposal  ProposalRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		User:      NewUserRepo(db),
		Job:       NewJobRepo(db),
		StaffTime: NewStaffTimeRepo(db),
		Wrapup:    NewWrapupRepo(db),
		Task:      NewTaskRepo(db),
		JobTask:   NewJobTaskRepo(db),
		TimeEntry: NewTimeEntryRepo(db),
		Lead:      NewLeadRepo(db),
		Proposal:  NewProposalRepo(db),
	}
}
