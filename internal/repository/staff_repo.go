package repository

import (
	"context"
	"database/sql"

	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/models"
)

// staffTimeRepo is the concrete implementation of StaffTimeRepository
type staffTimeRepo struct {
	db *database.DB
}

// NewStaffTimeRepo creates a new staff time repository
func NewStaffTimeRepo(db *database.DB) StaffTimeRepository {
	return &staffTimeRepo{db: db}
}

func scanStaffTime(row scanner) (*models.StaffTime, error) {
	var st models.StaffTime
	var checkIn, checkOut sql.NullTime
	if err := row.Scan(&st.ID, &st.JobID, &st.StaffName, &checkIn, &checkOut); err != nil {
		return nil, err
	}
	st.CheckIn = timePtr(checkIn)
	st.CheckOut = timePtr(checkOut)
	return &st, nil
}

// Get retrieves the row of a staff member on a job
func (r *staffTimeRepo) Get(ctx context.Context, jobID, staffName string) (*models.StaffTime, error) {
	query := `SELECT id, job_id, staff_name, check_in, check_out FROM staff_times WHERE job_id = $1 AND staff_name = $2`
	st, err := scanStaffTime(r.db.QueryRowContext(ctx, query, jobID, staffName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return st, err
}

// ListByJob retrieves every staff row of a job
func (r *staffTimeRepo) ListByJob(ctx context.Context, jobID string) ([]*models.StaffTime, error) {
	query := `SELECT id, job_id, staff_name, check_in, check_out FROM staff_times WHERE job_id = $1 ORDER BY check_in NULLS LAST, staff_name`
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.StaffTime
	for rows.Next() {
		st, err := scanStaffTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Save upserts on (job_id, staff_name), keeping one row per pair. A stored
// check_in or check_out is never overwritten, so concurrent first check-ins
// keep the earliest write. st is refreshed with the stored row.
func (r *staffTimeRepo) Save(ctx context.Context, st *models.StaffTime) error {
	query := `
		INSERT INTO staff_times (id, job_id, staff_name, check_in, check_out)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id, staff_name) DO UPDATE SET
			check_in = COALESCE(staff_times.check_in, EXCLUDED.check_in),
			check_out = COALESCE(staff_times.check_out, EXCLUDED.check_out)
		RETURNING id, job_id, staff_name, check_in, check_out
	`
	saved, err := scanStaffTime(r.db.QueryRowContext(ctx, query, st.ID, st.JobID, st.StaffName, st.CheckIn, st.CheckOut))
	if err != nil {
		return err
	}
	*st = *saved
	return nil
}

// wrapupRepo is the concrete implementation of WrapupRepository
type wrapupRepo struct {
	db *database.DB
}

// NewWrapupRepo creates a new wrap-up checklist repository
func NewWrapupRepo(db *database.DB) WrapupRepository {
	return &wrapupRepo{db: db}
}

// ListByJob retrieves saved checklist items of a job
func (r *wrapupRepo) ListByJob(ctx context.Context, jobID string) ([]*models.WrapupItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, job_id, item, checked FROM job_wrapup WHERE job_id = $1 ORDER BY item`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.WrapupItem
	for rows.Next() {
		var it models.WrapupItem
		if err := rows.Scan(&it.ID, &it.JobID, &it.Item, &it.Checked); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// Replace overwrites the checklist of a job
func (r *wrapupRepo) Replace(ctx context.Context, jobID string, items []*models.WrapupItem) error {
	return database.WithTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM job_wrapup WHERE job_id = $1`, jobID); err != nil {
			return err
		}
		for _, it := range items {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO job_wrapup (id, job_id, item, checked) VALUES ($1, $2, $3, $4)`,
				it.ID, jobID, it.Item, it.Checked,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
