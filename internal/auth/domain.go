package auth

import (
	"time"

	"github.com/thvgger/igs-portal/internal/shared"
)

// User represents an authenticated user account.
type User struct {
	ID           int64       `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	MiddleName   string      `json:"middle_name,omitempty"`
	Role         shared.Role `json:"role"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Staff is an ADMIN or LOWER_ADMIN account. ID is the admins or lower_admins row.
type Staff struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"user_id"`
	Role       shared.Role `json:"role"`
	Email      string      `json:"email"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	MiddleName string      `json:"middle_name,omitempty"`
	IsActive   bool        `json:"is_active"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CreateUserInput creates a staff account. Students and teachers are created
// through the academics module together with their records.
type CreateUserInput struct {
	Email      string      `json:"email" validate:"required,email"`
	Password   string      `json:"password" validate:"required,min=8"`
	FirstName  string      `json:"first_name" validate:"required,max=100"`
	LastName   string      `json:"last_name" validate:"required,max=100"`
	MiddleName string      `json:"middle_name" validate:"max=100"`
	Role       shared.Role `json:"role" validate:"required,oneof=ADMIN LOWER_ADMIN"`
}

// UpdateUserInput edits an account; nil fields are left unchanged. The role
// is fixed at creation.
type UpdateUserInput struct {
	Email      *string `json:"email" validate:"omitempty,email"`
	Password   *string `json:"password" validate:"omitempty,min=8"`
	FirstName  *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	MiddleName *string `json:"middle_name" validate:"omitempty,max=100"`
	IsActive   *bool   `json:"is_active"`
}

// UserFilter narrows ListUsers. An empty Role lists every account.
type UserFilter struct {
	Role shared.Role
	shared.PageRequest
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Me describes the current principal to the client.
type Me struct {
	UserID      int64       `json:"user_id"`
	Email       string      `json:"email"`
	Role        shared.Role `json:"role"`
	StudentID   int64       `json:"student_id,omitempty"`
	Permissions []string    `json:"permissions"`
	CSRFToken   string      `json:"csrf_token"`
}
