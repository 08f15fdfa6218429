package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/models"
)

// jobTaskRepo is the concrete implementation of JobTaskRepository
type jobTaskRepo struct {
	db *database.DB
}

// NewJobTaskRepo creates a new job task repository
func NewJobTaskRepo(db *database.DB) JobTaskRepository {
	return &jobTaskRepo{db: db}
}

const jobTaskColumns = `id, job_id, title, description, scope_reference, status, priority,
	estimated_hours, due_date, assigned_to, notes, created_at, updated_at`

func scanJobTask(row scanner) (*models.JobTask, error) {
	var task models.JobTask
	var dueDate sql.NullTime
	err := row.Scan(
		&task.ID, &task.JobID, &task.Title, &task.Description, &task.ScopeReference,
		&task.Status, &task.Priority, &task.EstimatedHours, &dueDate, pq.Array(&task.AssignedTo),
		&task.Notes, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.DueDate = timePtr(dueDate)
	return &task, nil
}

// Create inserts a job task and an assignment row per assignee
func (r *jobTaskRepo) Create(ctx context.Context, task *models.JobTask) error {
	return database.WithTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		query := `
			INSERT INTO job_tasks (id, job_id, title, description, scope_reference, status, priority,
				estimated_hours, due_date, assigned_to, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`
		_, err := tx.ExecContext(ctx, query,
			task.ID, task.JobID, task.Title, task.Description, task.ScopeReference, task.Status,
			task.Priority, task.EstimatedHours, task.DueDate, pq.Array(task.AssignedTo), task.Notes,
			task.CreatedAt, task.UpdatedAt,
		)
		if err != nil {
			return err
		}

		for _, name := range task.AssignedTo {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO task_assignments (task_id, staff_name, assigned_at) VALUES ($1, $2, $3)`,
				task.ID, name, task.CreatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a job task by ID
func (r *jobTaskRepo) GetByID(ctx context.Context, id string) (*models.JobTask, error) {
	task, err := scanJobTask(r.db.QueryRowContext(ctx,
		`SELECT `+jobTaskColumns+` FROM job_tasks WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return task, err
}

// ListByJob retrieves the tasks of a job in creation order
func (r *jobTaskRepo) ListByJob(ctx context.Context, jobID string) ([]*models.JobTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobTaskColumns+` FROM job_tasks WHERE job_id = $1 ORDER BY created_at`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.JobTask
	for rows.Next() {
		task, err := scanJobTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ApplyTransition writes the status change and its log in one transaction
func (r *jobTaskRepo) ApplyTransition(ctx context.Context, task *models.JobTask, entry *models.TaskLog) error {
	return database.WithTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE job_tasks SET status = $1, updated_at = $2 WHERE id = $3`,
			task.Status, task.UpdatedAt, task.ID,
		)
		if err != nil {
			return err
		}
		return insertLog(ctx, tx, entry)
	})
}

// AddLog appends a log entry
func (r *jobTaskRepo) AddLog(ctx context.Context, entry *models.TaskLog) error {
	return insertLog(ctx, r.db.DB, entry)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertLog(ctx context.Context, db execer, entry *models.TaskLog) error {
	query := `
		INSERT INTO task_logs (id, task_id, staff_name, log_type, hours_worked, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := db.ExecContext(ctx, query,
		entry.ID, entry.TaskID, entry.StaffName, entry.LogType, entry.HoursWorked,
		entry.Notes, entry.CreatedAt,
	)
	return err
}

// ListLogs retrieves the log history of a task, oldest first
func (r *jobTaskRepo) ListLogs(ctx context.Context, taskID string) ([]models.TaskLog, error) {
	query := `
		SELECT id, task_id, staff_name, log_type, hours_worked, notes, created_at
		FROM task_logs WHERE task_id = $1 ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.TaskLog{}
	for rows.Next() {
		var l models.TaskLog
		var hours sql.NullFloat64
		if err := rows.Scan(&l.ID, &l.TaskID, &l.StaffName, &l.LogType, &hours, &l.Notes, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.HoursWorked = floatPtr(hours)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ListAssignments retrieves assignment history of a task
func (r *jobTaskRepo) ListAssignments(ctx context.Context, taskID string) ([]*models.TaskAssignment, error) {
	query := `
		SELECT id, task_id, staff_name, assigned_at, unassigned_at
		FROM task_assignments WHERE task_id = $1 ORDER BY assigned_at
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TaskAssignment
	for rows.Next() {
		var a models.TaskAssignment
		var unassigned sql.NullTime
		if err := rows.Scan(&a.ID, &a.TaskID, &a.StaffName, &a.AssignedAt, &unassigned); err != nil {
			return nil, err
		}
		a.UnassignedAt = timePtr(unassigned)
		out = append(out, &a)
	}
	return out, rows.Err()
}
