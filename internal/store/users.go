package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

const userColumns = `id, created_at, updated_at, username, email, password_hash,
	full_name, phone_number, bio, avatar_url,
	is_active, is_verified, is_staff, email_verified_at,
	failed_login_attempts, locked_until, last_login_at`

// Users is the Postgres-backed credential store.
type Users struct {
	db *sql.DB
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Username, &u.Email, &u.PasswordHash,
		&u.FullName, &u.PhoneNumber, &u.Bio, &u.AvatarURL,
		&u.IsActive, &u.IsVerified, &u.IsStaff, &u.EmailVerifiedAt,
		&u.FailedLoginAttempts, &u.LockedUntil, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Users) Create(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, created_at, updated_at, username, email, password_hash,
			full_name, phone_number, bio, avatar_url, is_active, is_verified, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, u.ID, u.CreatedAt, u.UpdatedAt, u.Username, u.Email, u.PasswordHash,
		u.FullName, u.PhoneNumber, u.Bio, u.AvatarURL, u.IsActive, u.IsVerified, u.IsStaff)
	return constraintErr(err, map[string]error{
		"users_username_key": ErrDuplicateUsername,
		"users_email_key":    ErrDuplicateEmail,
	})
}

func (s *Users) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Users) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username))
}

func (s *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

// ByLogin finds a user by username, falling back to email when the login
// looks like an address or no username matched.
func (s *Users) ByLogin(ctx context.Context, login string) (*models.User, error) {
	u, err := s.ByUsername(ctx, login)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if !strings.Contains(login, "@") {
		return nil, ErrNotFound
	}
	return s.ByEmail(ctx, login)
}

// Update persists the mutable identity fields.
func (s *Users) Update(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, full_name = $3, phone_number = $4, bio = $5, avatar_url = $6,
			is_verified = $7, email_verified_at = $8, updated_at = NOW()
		WHERE id = $1
	`, u.ID, u.Email, u.FullName, u.PhoneNumber, u.Bio, u.AvatarURL,
		u.IsVerified, u.EmailVerifiedAt)
	if err != nil {
		return constraintErr(err, map[string]error{"users_email_key": ErrDuplicateEmail})
	}
	return checkAffected(res)
}

func (s *Users) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Users) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// IncrementFailedAttempts bumps the failure counter in a single statement so
// concurrent logins ride on row-level locking, and returns the new count.
func (s *Users) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1
		WHERE id = $1
		RETURNING failed_login_attempts
	`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return n, err
}

func (s *Users) SetLockedUntil(ctx context.Context, id uuid.UUID, until time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET locked_until = $2 WHERE id = $1`, id, until)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// ResetFailedAttempts zeroes the counter and clears any lockout.
func (s *Users) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// EmailInUse reports whether another user already has this email.
func (s *Users) EmailInUse(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2)
	`, email, excludeID).Scan(&exists)
	return exists, err
}

// List returns active users, newest first.
func (s *Users) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Username, &u.Email, &u.PasswordHash,
			&u.FullName, &u.PhoneNumber, &u.Bio, &u.AvatarURL,
			&u.IsActive, &u.IsVerified, &u.IsStaff, &u.EmailVerifiedAt,
			&u.FailedLoginAttempts, &u.LockedUntil, &u.LastLoginAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
