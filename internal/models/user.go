package models

import (
	"time"
)

// Role is the closed set of user roles
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleManager       Role = "manager"
	RoleTechnician    Role = "technician"
	RoleSubcontractor Role = "subcontractor"
	RoleStaff         Role = "staff"
)

// ValidRoles defines allowed user roles
var ValidRoles = map[Role]bool{
	RoleAdmin:         true,
	RoleManager:       true,
	RoleTechnician:    true,
	RoleSubcontractor: true,
	RoleStaff:         true,
}

// User represents a dashboard user profile
type User struct {
	ID         string    `json:"id" db:"id"`
	AuthUserID string    `json:"auth_user_id" db:"auth_user_id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Email      string    `json:"email" db:"email"`
	Phone      string    `json:"phone" db:"phone"`
	Role       Role      `json:"role" db:"role"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// UserFilter narrows user listings
type UserFilter struct {
	Role   Role
	Active *bool
	Search string
}

// CreateUserRequest is the body of POST /v1/users. It links a profile to an
// identity-provider subject.
type CreateUserRequest struct {
	AuthUserID string `json:"auth_user_id" binding:"required,notblank"`
	FullName   string `json:"full_name" binding:"required,notblank"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone"`
	Role       Role   `json:"role" binding:"required,oneof=admin manager technician subcontractor staff"`
}

// UpdateRoleRequest is the body of PATCH /v1/users/:id/role
type UpdateRoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=admin manager technician subcontractor staff"`
}

// SetActiveRequest is the body of PATCH /v1/users/:id/active
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
