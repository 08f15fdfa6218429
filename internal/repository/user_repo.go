package repository

import (
	"context"
	"database/sql"

	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/models"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, COALESCE(auth_user_id, ''), full_name, email, phone, role, active, created_at`

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.AuthUserID, &user.FullName, &user.Email, &user.Phone,
		&user.Role, &user.Active, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user profile
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, auth_user_id, full_name, email, phone, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, nullString(user.AuthUserID), user.FullName, user.Email, user.Phone,
		user.Role, user.Active, user.CreatedAt,
	)
	return err
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

// GetByAuthID retrieves the profile linked to an identity provider subject
func (r *userRepo) GetByAuthID(ctx context.Context, authUserID string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE auth_user_id = $1`, authUserID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

// List retrieves users matching the filter ordered by name
func (r *userRepo) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	w := &where{}
	w.eq("role", string(filter.Role))
	if filter.Active != nil {
		w.raw("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		w.raw("(full_name ILIKE ? OR email ILIKE ?)", "%"+filter.Search+"%")
	}

	query := `SELECT ` + userColumns + ` FROM users` + w.String() + ` ORDER BY full_name`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateRole reassigns a user's role
func (r *userRepo) UpdateRole(ctx context.Context, id string, role models.Role) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// SetActive activates or deactivates a user
func (r *userRepo) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
