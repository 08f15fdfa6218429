package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/repository"
)

// userService is the concrete implementation of UserService
type userService struct {
	users repository.UserRepository
	log   zerolog.Logger
}

func newUserService(users repository.UserRepository, log zerolog.Logger) *userService {
	return &userService{
		users: users,
		log:   log.With().Str("service", "user").Logger(),
	}
}

// Get returns one user profile
func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// GetByAuthID resolves the profile behind an identity-provider subject
func (s *userService) GetByAuthID(ctx context.Context, authUserID string) (*models.User, error) {
	user, err := s.users.GetByAuthID(ctx, authUserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// Create provisions an active profile for an identity-provider subject. A
// subject can be linked to one profile only.
func (s *userService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if !models.ValidRoles[req.Role] {
		return nil, fmt.Errorf("%w: invalid role %q", ErrValidation, req.Role)
	}

	authID := strings.TrimSpace(req.AuthUserID)
	existing, err := s.users.GetByAuthID(ctx, authID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: auth_user_id is already linked to a profile", ErrValidation)
	}

	user := &models.User{
		ID:         uuid.New().String(),
		AuthUserID: authID,
		FullName:   strings.TrimSpace(req.FullName),
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Role:       req.Role,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User created")
	return user, nil
}

// List returns user profiles matching the filter
func (s *userService) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	if filter.Role != "" && !models.ValidRoles[filter.Role] {
		return nil, fmt.Errorf("%w: invalid role %q", ErrValidation, filter.Role)
	}
	return s.users.List(ctx, filter)
}

// UpdateRole changes a user's role
func (s *userService) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if !models.ValidRoles[role] {
		return nil, fmt.Errorf("%w: invalid role %q", ErrValidation, role)
	}

	found, err := s.users.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	s.log.Info().Str("user_id", id).Str("role", string(role)).Msg("User role updated")
	return s.Get(ctx, id)
}

// SetActive enables or disables a user. Inactive users lose every
// capability on their next request.
func (s *userService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	found, err := s.users.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	s.log.Info().Str("user_id", id).Bool("active", active).Msg("User active flag updated")
	return s.Get(ctx, id)
}
