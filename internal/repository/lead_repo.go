package repository

import (
	"context"
	"database/sql"

	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/models"
)

// leadRepo is the concrete implementation of LeadRepository
type leadRepo struct {
	db *database.DB
}

// NewLeadRepo creates a new lead repository
func NewLeadRepo(db *database.DB) LeadRepository {
	return &leadRepo{db: db}
}

const leadSelect = `
	SELECT l.id, l.full_name, l.company, l.phone, l.email, l.current_status,
		l.assigned_to::text, l.created_at,
		(SELECT MAX(s.changed_at) FROM lead_status_log s WHERE s.lead_id = l.id)
	FROM leads l`

func scanLead(row scanner) (*models.Lead, error) {
	var lead models.Lead
	var assigned sql.NullString
	var lastChange sql.NullTime
	err := row.Scan(
		&lead.ID, &lead.FullName, &lead.Company, &lead.Phone, &lead.Email, &lead.CurrentStatus,
		&assigned, &lead.CreatedAt, &lastChange,
	)
	if err != nil {
		return nil, err
	}
	lead.AssignedTo = stringPtr(assigned)
	lead.LastStatusChange = timePtr(lastChange)
	return &lead, nil
}

func (r *leadRepo) query(ctx context.Context, w *where) ([]*models.Lead, error) {
	rows, err := r.db.QueryContext(ctx, leadSelect+w.String()+` ORDER BY l.created_at DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// List retrieves leads newest first, optionally only those assigned to a user
func (r *leadRepo) List(ctx context.Context, assignedTo string) ([]*models.Lead, error) {
	w := &where{}
	w.eq("l.assigned_to::text", assignedTo)
	return r.query(ctx, w)
}

// Count returns the number of leads visible to assignedTo
func (r *leadRepo) Count(ctx context.Context, assignedTo string) (int, error) {
	w := &where{}
	w.eq("assigned_to::text", assignedTo)
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+w.String(), w.args...).Scan(&count)
	return count, err
}
