package mocks

import (
	"context"

	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/service"
)

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	Users     map[string]*models.User
	LookupErr error
	Lookups   int
}

// Verify interface compliance
var _ service.UserService = (*MockUserService)(nil)

func NewMockUserService(users ...*models.User) *MockUserService {
	m := &MockUserService{Users: make(map[string]*models.User)}
	for _, u := range users {
		m.Users[u.ID] = u
	}
	return m
}

func (m *MockUserService) Get(ctx context.Context, id string) (*models.User, error) {
	m.Lookups++
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return u, nil
}

func (m *MockUserService) GetByAuthID(ctx context.Context, authUserID string) (*models.User, error) {
	m.Lookups++
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	for _, u := range m.Users {
		if u.AuthUserID == authUserID {
			return u, nil
		}
	}
	return nil, service.ErrNotFound
}

func (m *MockUserService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	u := &models.User{
		ID:         req.AuthUserID,
		AuthUserID: req.AuthUserID,
		FullName:   req.FullName,
		Email:      req.Email,
		Role:       req.Role,
		Active:     true,
	}
	m.Users[u.ID] = u
	return u, nil
}

func (m *MockUserService) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	out := make([]*models.User, 0, len(m.Users))
	for _, u := range m.Users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *MockUserService) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	u, ok := m.Users[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	u.Role = role
	return u, nil
}

func (m *MockUserService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	u, ok := m.Users[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	u.Active = active
	return u, nil
}
