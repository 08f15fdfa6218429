package repository

import (
	"context"
	"database/sql"

	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/models"
)

// proposalRepo is the concrete implementation of ProposalRepository
type proposalRepo struct {
	db *database.DB
}

// NewProposalRepo creates a new proposal repository
func NewProposalRepo(db *database.DB) ProposalRepository {
	return &proposalRepo{db: db}
}

const proposalColumns = `id, lead_id, title, status, version, is_latest, created_by::text, created_at`

func scanProposal(row scanner) (*models.Proposal, error) {
	var p models.Proposal
	var createdBy sql.NullString
	err := row.Scan(&p.ID, &p.LeadID, &p.Title, &p.Status, &p.Version, &p.IsLatest, &createdBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedBy = stringPtr(createdBy)
	return &p, nil
}

// GetByID retrieves a proposal by ID
func (r *proposalRepo) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	p, err := scanProposal(r.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List retrieves the latest version of each proposal, newest first
func (r *proposalRepo) List(ctx context.Context, createdBy string) ([]*models.Proposal, error) {
	w := &where{}
	w.raw("is_latest = ?", true)
	w.eq("created_by::text", createdBy)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals`+w.String()+` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateRevision marks base superseded and inserts rev. It returns
// ErrStale when base is no longer the latest version.
func (r *proposalRepo) CreateRevision(ctx context.Context, base, rev *models.Proposal) error {
	return database.WithTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE proposals SET is_latest = FALSE WHERE id = $1 AND is_latest`, base.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrStale
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE proposals SET is_latest = FALSE WHERE lead_id = $1 AND title = $2`,
			base.LeadID, base.Title,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO proposals (id, lead_id, title, status, version, is_latest, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rev.ID, rev.LeadID, rev.Title, rev.Status, rev.Version, rev.IsLatest,
			nullStringPtr(rev.CreatedBy), rev.CreatedAt,
		)
		return err
	})
}

// CountOpen returns the number of latest proposals awaiting a decision
func (r *proposalRepo) CountOpen(ctx context.Context, createdBy string) (int, error) {
	w := &where{}
	w.raw("is_latest = ?", true)
	w.raw("status = ?", string(models.ProposalStatusSent))
	w.eq("created_by::text", createdBy)

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM proposals`+w.String(), w.args...).Scan(&count)
	return count, err
}
