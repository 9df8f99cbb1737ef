package dto

import "github.com/pharmetric/fieldops-api/internal/models"

// CreateUserRequest is the payload for provisioning an account.
type CreateUserRequest struct {
	Email        string          `json:"email" validate:"required,email"`
	Password     string          `json:"password" validate:"required,min=6"`
	FullName     string          `json:"fullName" validate:"required"`
	Role         models.UserRole `json:"role" validate:"required,oneof=ADMIN SUPERVISOR TECHNICIAN"`
	SupervisorID *string         `json:"supervisorId,omitempty"`
}

// UpdateUserRequest carries partial updates for an account.
type UpdateUserRequest struct {
	Email        *string          `json:"email,omitempty" validate:"omitempty,email"`
	FullName     *string          `json:"fullName,omitempty"`
	Role         *models.UserRole `json:"role,omitempty" validate:"omitempty,oneof=ADMIN SUPERVISOR TECHNICIAN"`
	SupervisorID *string          `json:"supervisorId,omitempty"`
	Active       *bool            `json:"active,omitempty"`
}
