package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/models"
)

// taskRepo is the concrete implementation of TaskRepository
type taskRepo struct {
	db *database.DB
}

// NewTaskRepo creates a new global task repository
func NewTaskRepo(db *database.DB) TaskRepository {
	return &taskRepo{db: db}
}

const taskColumns = `
	t.id, t.title, t.description, t.status, t.priority, t.category_id::text, t.due_date,
	t.estimated_hours, t.notes, t.is_recurring, t.recurrence_pattern, t.assigned_to,
	t.created_by, t.created_at, t.updated_at,
	c.id::text, c.name, c.color`

func scanTask(row scanner) (*models.GlobalTask, error) {
	var task models.GlobalTask
	var description, categoryID, notes, pattern sql.NullString
	var dueDate sql.NullTime
	var estimate sql.NullFloat64
	var catID, catName, catColor sql.NullString

	err := row.Scan(
		&task.ID, &task.Title, &description, &task.Status, &task.Priority, &categoryID, &dueDate,
		&estimate, &notes, &task.IsRecurring, &pattern, pq.Array(&task.AssignedTo),
		&task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
		&catID, &catName, &catColor,
	)
	if err != nil {
		return nil, err
	}

	task.Description = stringPtr(description)
	task.CategoryID = stringPtr(categoryID)
	task.DueDate = timePtr(dueDate)
	task.EstimatedHours = floatPtr(estimate)
	task.Notes = stringPtr(notes)
	task.RecurrencePattern = stringPtr(pattern)
	if catID.Valid {
		task.Category = &models.TaskCategory{ID: catID.String, Name: catName.String, Color: catColor.String}
	}
	task.Tags = []models.TaskTag{}
	return &task, nil
}

// Create inserts a new global task
func (r *taskRepo) Create(ctx context.Context, task *models.GlobalTask) error {
	query := `
		INSERT INTO global_tasks (id, title, description, status, priority, category_id, due_date,
			estimated_hours, notes, is_recurring, recurrence_pattern, assigned_to, created_by,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.Title, nullStringPtr(task.Description), task.Status, task.Priority,
		nullStringPtr(task.CategoryID), task.DueDate, task.EstimatedHours, nullStringPtr(task.Notes),
		task.IsRecurring, nullStringPtr(task.RecurrencePattern), pq.Array(task.AssignedTo),
		task.CreatedBy, task.CreatedAt, task.UpdatedAt,
	)
	return err
}

// LinkTags associates tags with a task in a single statement
func (r *taskRepo) LinkTags(ctx context.Context, taskID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO global_task_tags (task_id, tag_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, taskID, pq.Array(tagIDs))
	return err
}

// GetByID retrieves a task with its category and tags
func (r *taskRepo) GetByID(ctx context.Context, id string) (*models.GlobalTask, error) {
	query := `SELECT ` + taskColumns + `
		FROM global_tasks t LEFT JOIN task_categories c ON c.id = t.category_id
		WHERE t.id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachTags(ctx, []*models.GlobalTask{task}); err != nil {
		return nil, err
	}
	return task, nil
}

func taskWhere(filter models.TaskFilter) *where {
	w := &where{}
	w.eq("t.status", string(filter.Status))
	w.eq("t.category_id::text", filter.CategoryID)
	w.contains("t.assigned_to", filter.AssignedTo)
	w.eq("t.created_by", filter.CreatedBy)
	return w
}

// List retrieves tasks matching every set filter, newest first
func (r *taskRepo) List(ctx context.Context, filter models.TaskFilter) ([]*models.GlobalTask, error) {
	w := taskWhere(filter)
	query := `SELECT ` + taskColumns + `
		FROM global_tasks t LEFT JOIN task_categories c ON c.id = t.category_id` +
		w.String() + ` ORDER BY t.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.GlobalTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachTags(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// attachTags flattens the tag association onto each task
func (r *taskRepo) attachTags(ctx context.Context, tasks []*models.GlobalTask) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, 0, len(tasks))
	byID := make(map[string]*models.GlobalTask, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}

	query := `
		SELECT gtt.task_id::text, tg.id::text, tg.name, tg.color
		FROM global_task_tags gtt JOIN task_tags tg ON tg.id = gtt.tag_id
		WHERE gtt.task_id = ANY($1::uuid[])
		ORDER BY tg.name
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var taskID string
		var tag models.TaskTag
		if err := rows.Scan(&taskID, &tag.ID, &tag.Name, &tag.Color); err != nil {
			return err
		}
		if t, ok := byID[taskID]; ok {
			t.Tags = append(t.Tags, tag)
		}
	}
	return rows.Err()
}

// UpdateStatus writes the status of a task
func (r *taskRepo) UpdateStatus(ctx context.Context, task *models.GlobalTask) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE global_tasks SET status = $1, updated_at = $2 WHERE id = $3`,
		task.Status, task.UpdatedAt, task.ID,
	)
	return err
}

// Count returns the number of tasks matching the filter
func (r *taskRepo) Count(ctx context.Context, filter models.TaskFilter) (int, error) {
	w := taskWhere(filter)
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM global_tasks t`+w.String(), w.args...).Scan(&count)
	return count, err
}
