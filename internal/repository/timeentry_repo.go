package repository

import (
	"context"
	"database/sql"

	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/models"
)

// timeEntryRepo is the concrete implementation of TimeEntryRepository
type timeEntryRepo struct {
	db *database.DB
}

// NewTimeEntryRepo creates a new time entry repository
func NewTimeEntryRepo(db *database.DB) TimeEntryRepository {
	return &timeEntryRepo{db: db}
}

const timeEntryColumns = `id, task_id, user_id, start_time, end_time, hours`

func scanTimeEntry(row scanner) (*models.TimeEntry, error) {
	var e models.TimeEntry
	var end sql.NullTime
	var hours sql.NullFloat64
	if err := row.Scan(&e.ID, &e.TaskID, &e.UserID, &e.StartTime, &end, &hours); err != nil {
		return nil, err
	}
	e.EndTime = timePtr(end)
	e.Hours = floatPtr(hours)
	return &e, nil
}

// ListOpenByUser retrieves every running timer of a user
func (r *timeEntryRepo) ListOpenByUser(ctx context.Context, userID string) ([]*models.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+timeEntryColumns+` FROM time_entries WHERE user_id = $1 AND end_time IS NULL ORDER BY start_time`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetOpen retrieves the running timer of a user on a task
func (r *timeEntryRepo) GetOpen(ctx context.Context, taskID, userID string) (*models.TimeEntry, error) {
	e, err := scanTimeEntry(r.db.QueryRowContext(ctx,
		`SELECT `+timeEntryColumns+` FROM time_entries
		 WHERE task_id = $1 AND user_id = $2 AND end_time IS NULL
		 ORDER BY start_time DESC LIMIT 1`,
		taskID, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// SwitchTimer closes running timers, opens a new one and moves the task
func (r *timeEntryRepo) SwitchTimer(ctx context.Context, closing []*models.TimeEntry, opening *models.TimeEntry, task *models.GlobalTask) error {
	return database.WithTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		for _, e := range closing {
			if err := closeEntry(ctx, tx, e); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO time_entries (id, task_id, user_id, start_time) VALUES ($1, $2, $3, $4)`,
			opening.ID, opening.TaskID, opening.UserID, opening.StartTime,
		)
		if err != nil {
			return err
		}

		if task != nil {
			_, err := tx.ExecContext(ctx,
				`UPDATE global_tasks SET status = $1, updated_at = $2 WHERE id = $3`,
				task.Status, task.UpdatedAt, task.ID,
			)
			return err
		}
		return nil
	})
}

// Close stops a single timer
func (r *timeEntryRepo) Close(ctx context.Context, entry *models.TimeEntry) error {
	return closeEntry(ctx, r.db.DB, entry)
}

func closeEntry(ctx context.Context, db execer, e *models.TimeEntry) error {
	_, err := db.ExecContext(ctx,
		`UPDATE time_entries SET end_time = $1, hours = $2 WHERE id = $3 AND end_time IS NULL`,
		e.EndTime, e.Hours, e.ID,
	)
	return err
}
