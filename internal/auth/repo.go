package auth

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thvgger/igs-portal/internal/platform/db"
	"github.com/thvgger/igs-portal/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindPrincipal(ctx context.Context, userID int64) (shared.Principal, error)
	CreateStaff(ctx context.Context, in CreateUserInput, passwordHash string) (Staff, error)
	GetStaff(ctx context.Context, role shared.Role, id int64) (Staff, error)
	ListStaff(ctx context.Context, role shared.Role) ([]Staff, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]User, int, error)
	UpdateUser(ctx context.Context, id int64, in UpdateUserInput, passwordHash string) (*User, error)
	DeleteUser(ctx context.Context, id int64) error
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, middle_name, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.MiddleName, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = shared.Role(role)
	return &u, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, db.MapError("auth: find user", err)
	}
	return user, nil
}

// FindPrincipal loads the role and student link of an active user.
func (r *PGRepository) FindPrincipal(ctx context.Context, userID int64) (shared.Principal, error) {
	var (
		p         shared.Principal
		role      string
		studentID pgtype.Int8
	)
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.role, st.id
		FROM users u
		LEFT JOIN students st ON st.user_id = u.id
		WHERE u.id = $1 AND u.is_active`, userID,
	).Scan(&p.UserID, &p.Email, &role, &studentID)
	if err != nil {
		return shared.Principal{}, db.MapError("auth: find principal", err)
	}
	p.Role = shared.Role(role)
	if studentID.Valid {
		p.StudentID = studentID.Int64
	}
	return p, nil
}

// staffTables maps each staff role to the table holding its role rows.
var staffTables = map[shared.Role]string{
	shared.RoleAdmin:      "admins",
	shared.RoleLowerAdmin: "lower_admins",
}

func staffTable(role shared.Role) (string, error) {
	table, ok := staffTables[role]
	if !ok {
		return "", shared.NewValidationError("role", "must be ADMIN or LOWER_ADMIN")
	}
	return table, nil
}

func staffSelect(table string) string {
	return `
		SELECT a.id, a.user_id, u.role, u.email, u.first_name, u.last_name, u.middle_name, u.is_active, a.created_at
		FROM ` + table + ` a JOIN users u ON u.id = a.user_id`
}

func scanStaff(row pgx.Row) (Staff, error) {
	var (
		st   Staff
		role string
	)
	err := row.Scan(&st.ID, &st.UserID, &role, &st.Email, &st.FirstName, &st.LastName, &st.MiddleName, &st.IsActive, &st.CreatedAt)
	st.Role = shared.Role(role)
	return st, err
}

// CreateStaff inserts the user and its admin or lower admin row in one transaction.
func (r *PGRepository) CreateStaff(ctx context.Context, in CreateUserInput, passwordHash string) (Staff, error) {
	table, err := staffTable(in.Role)
	if err != nil {
		return Staff{}, err
	}
	var id int64
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO users (email, password_hash, first_name, last_name, middle_name, role)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			strings.ToLower(strings.TrimSpace(in.Email)), passwordHash, in.FirstName, in.LastName, in.MiddleName, string(in.Role),
		).Scan(&userID)
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, `INSERT INTO `+table+` (user_id) VALUES ($1) RETURNING id`, userID).Scan(&id)
	})
	if err != nil {
		return Staff{}, db.MapError("auth: create staff", err)
	}
	return r.GetStaff(ctx, in.Role, id)
}

// GetStaff loads one admin or lower admin by its role row id.
func (r *PGRepository) GetStaff(ctx context.Context, role shared.Role, id int64) (Staff, error) {
	table, err := staffTable(role)
	if err != nil {
		return Staff{}, err
	}
	st, err := scanStaff(r.pool.QueryRow(ctx, staffSelect(table)+` WHERE a.id = $1`, id))
	if err != nil {
		return Staff{}, db.MapError("auth: get staff", err)
	}
	return st, nil
}

// ListStaff returns the accounts holding role, ordered by name.
func (r *PGRepository) ListStaff(ctx context.Context, role shared.Role) ([]Staff, error) {
	table, err := staffTable(role)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, staffSelect(table)+` ORDER BY u.last_name, u.first_name, a.id`)
	if err != nil {
		return nil, db.MapError("auth: list staff", err)
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, db.MapError("auth: scan staff", err)
		}
		out = append(out, st)
	}
	return out, db.MapError("auth: list staff", rows.Err())
}

// GetUser fetches a user by id.
func (r *PGRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError("auth: get user", err)
	}
	return user, nil
}

// userFilterWhere compares against a typed empty role so the parameter binds as text.
const userFilterWhere = ` WHERE ($1::text = '' OR role = $1)`

// ListUsers returns one page of users and the total match count.
func (r *PGRepository) ListUsers(ctx context.Context, f UserFilter) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+userFilterWhere, string(f.Role)).Scan(&total); err != nil {
		return nil, 0, db.MapError("auth: count users", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users`+userFilterWhere+`
		ORDER BY last_name, first_name, id
		LIMIT $2 OFFSET $3`, string(f.Role), f.Limit(), f.Offset())
	if err != nil {
		return nil, 0, db.MapError("auth: list users", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, db.MapError("auth: scan user", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.MapError("auth: list users", err)
	}
	return out, total, nil
}

// UpdateUser applies profile changes. An empty passwordHash keeps the current password.
func (r *PGRepository) UpdateUser(ctx context.Context, id int64, in UpdateUserInput, passwordHash string) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			email = COALESCE($2, email),
			first_name = COALESCE($3, first_name),
			last_name = COALESCE($4, last_name),
			middle_name = COALESCE($5, middle_name),
			is_active = COALESCE($6, is_active),
			password_hash = COALESCE(NULLIF($7, ''), password_hash),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, in.Email, in.FirstName, in.LastName, in.MiddleName, in.IsActive, passwordHash))
	if err != nil {
		return nil, db.MapError("auth: update user", err)
	}
	return user, nil
}

// DeleteUser removes a user; student, teacher and staff rows cascade.
func (r *PGRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return db.MapError("auth: delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID,
		pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
		pgtype.Timestamptz{Time: expiresAt.UTC(), Valid: true},
		pgtype.Text{String: ip, Valid: ip != ""},
		pgtype.Text{String: ua, Valid: ua != ""},
	)
	return db.MapError("auth: create session", err)
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return db.MapError("auth: delete session", err)
}

var _ Repository = (*PGRepository)(nil)
