package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/models"
)

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

const jobColumns = `
	j.id, j.title, COALESCE(j.lead_id::text, ''), j.scheduled_date, j.status,
	j.start_time, j.end_time, j.site_address, j.site_notes, j.created_at,
	ARRAY(SELECT ja.user_id::text FROM job_assignments ja WHERE ja.job_id = j.id ORDER BY ja.user_id)`

func scanJob(row scanner) (*models.Job, error) {
	var job models.Job
	var scheduled, startTime, endTime sql.NullTime

	err := row.Scan(
		&job.ID, &job.Title, &job.LeadID, &scheduled, &job.Status,
		&startTime, &endTime, &job.SiteAddress, &job.SiteNotes, &job.CreatedAt,
		pq.Array(&job.AssignedTo),
	)
	if err != nil {
		return nil, err
	}

	job.ScheduledDate = timePtr(scheduled)
	job.StartTime = timePtr(startTime)
	job.EndTime = timePtr(endTime)
	return &job, nil
}

// Create inserts a new job and its assignments
func (r *jobRepo) Create(ctx context.Context, job *models.Job) error {
	return database.WithTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		query := `
			INSERT INTO jobs (id, title, lead_id, scheduled_date, status, site_address, site_notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, query,
			job.ID, job.Title, nullString(job.LeadID), job.ScheduledDate, job.Status,
			job.SiteAddress, job.SiteNotes, job.CreatedAt,
		)
		if err != nil {
			return err
		}

		for _, userID := range job.AssignedTo {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO job_assignments (job_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				job.ID, userID,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

func jobWhere(filter models.JobFilter) *where {
	w := &where{}
	w.eq("j.status", string(filter.Status))
	if filter.AssignedTo != "" {
		w.raw("EXISTS (SELECT 1 FROM job_assignments ja WHERE ja.job_id = j.id AND ja.user_id::text = ?)", filter.AssignedTo)
	}
	w.gte("j.scheduled_date", filter.From)
	w.lte("j.scheduled_date", filter.To)
	return w
}

// List retrieves jobs ordered by scheduled date
func (r *jobRepo) List(ctx context.Context, filter models.JobFilter) ([]*models.Job, error) {
	w := jobWhere(filter)
	query := `SELECT ` + jobColumns + ` FROM jobs j` + w.String() +
		` ORDER BY j.scheduled_date NULLS LAST, j.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Update writes the lifecycle fields of a job
func (r *jobRepo) Update(ctx context.Context, job *models.Job) error {
	query := `UPDATE jobs SET status = $1, start_time = $2, end_time = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, job.Status, job.StartTime, job.EndTime, job.ID)
	return err
}

// Count returns the number of jobs matching the filter
func (r *jobRepo) Count(ctx context.Context, filter models.JobFilter) (int, error) {
	w := jobWhere(filter)
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs j`+w.String(), w.args...).Scan(&count)
	return count, err
}
