package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/thvgger/igs-portal/internal/shared"
)

// HashPassword hashes a plain password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// LoadPrincipal resolves the principal for a session's user id. The role is
// always read from the store, never from the session.
func (s *Service) LoadPrincipal(ctx context.Context, userID int64) (shared.Principal, error) {
	p, err := s.repo.FindPrincipal(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Principal{}, shared.ErrUnauthorized
		}
		return shared.Principal{}, err
	}
	if !p.Role.Valid() {
		return shared.Principal{}, shared.ErrUnauthorized
	}
	return p, nil
}

// CreateStaff provisions an ADMIN or LOWER_ADMIN account with its role row.
func (s *Service) CreateStaff(ctx context.Context, in CreateUserInput) (Staff, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Role = shared.Role(strings.ToUpper(strings.TrimSpace(string(in.Role))))
	if err := shared.ValidateStruct(in); err != nil {
		return Staff{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Staff{}, err
	}
	return s.repo.CreateStaff(ctx, in, hash)
}

// GetStaff returns one admin or lower admin.
func (s *Service) GetStaff(ctx context.Context, role shared.Role, id int64) (Staff, error) {
	if err := requireStaffRole(role); err != nil {
		return Staff{}, err
	}
	return s.repo.GetStaff(ctx, role, id)
}

// ListStaff lists the accounts holding role.
func (s *Service) ListStaff(ctx context.Context, role shared.Role) ([]Staff, error) {
	if err := requireStaffRole(role); err != nil {
		return nil, err
	}
	return s.repo.ListStaff(ctx, role)
}

// UpdateStaff edits the user behind an admin or lower admin.
func (s *Service) UpdateStaff(ctx context.Context, actor shared.Principal, role shared.Role, id int64, in UpdateUserInput) (Staff, error) {
	st, err := s.GetStaff(ctx, role, id)
	if err != nil {
		return Staff{}, err
	}
	if _, err := s.UpdateUser(ctx, actor, st.UserID, in); err != nil {
		return Staff{}, err
	}
	return s.repo.GetStaff(ctx, role, id)
}

// DeleteStaff removes an admin or lower admin together with their login.
func (s *Service) DeleteStaff(ctx context.Context, actor shared.Principal, role shared.Role, id int64) error {
	st, err := s.GetStaff(ctx, role, id)
	if err != nil {
		return err
	}
	return s.DeleteUser(ctx, actor, st.UserID)
}

// GetUser returns one account.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// ListUsers returns one page of accounts, optionally narrowed to a role.
func (s *Service) ListUsers(ctx context.Context, f UserFilter) ([]User, shared.Pagination, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, shared.Pagination{}, shared.NewValidationError("role", "unknown role")
	}
	users, total, err := s.repo.ListUsers(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if users == nil {
		users = []User{}
	}
	return users, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// UpdateUser edits an account. Nobody may deactivate their own account.
func (s *Service) UpdateUser(ctx context.Context, actor shared.Principal, id int64, in UpdateUserInput) (*User, error) {
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &email
	}
	if err := shared.ValidateStruct(in); err != nil {
		return nil, err
	}
	if actor.UserID == id && in.IsActive != nil && !*in.IsActive {
		return nil, shared.NewValidationError("is_active", "you cannot deactivate your own account")
	}
	var hash string
	if in.Password != nil {
		h, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}
	return s.repo.UpdateUser(ctx, id, in, hash)
}

// DeleteUser removes an account and every record that cascades from it.
func (s *Service) DeleteUser(ctx context.Context, actor shared.Principal, id int64) error {
	if actor.UserID == id {
		return shared.NewValidationError("id", "you cannot delete your own account")
	}
	return s.repo.DeleteUser(ctx, id)
}

func requireStaffRole(role shared.Role) error {
	if role != shared.RoleAdmin && role != shared.RoleLowerAdmin {
		return shared.NewValidationError("role", "must be ADMIN or LOWER_ADMIN")
	}
	return nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
