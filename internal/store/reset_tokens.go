package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

// ResetTokens is the Postgres-backed store for password reset tokens.
type ResetTokens struct {
	db *sql.DB
}

func NewResetTokens(db *sql.DB) *ResetTokens {
	return &ResetTokens{db: db}
}

// Upsert writes the token for its user, overwriting any previous token in
// place. Prior tokens are not kept.
func (s *ResetTokens) Upsert(ctx context.Context, t *models.PasswordResetToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at,
			used = FALSE,
			created_at = EXCLUDED.created_at
	`, t.ID, t.UserID, t.Token, t.ExpiresAt, t.CreatedAt)
	return err
}

func (s *ResetTokens) ByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, used, created_at
		FROM password_reset_tokens WHERE token = $1
	`, token).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Consume marks the token used and sets the user's new password hash in one
// transaction. The used-flag guard makes the operation non-replayable even
// under concurrent confirms.
func (s *ResetTokens) Consume(ctx context.Context, tokenID, userID uuid.UUID, newHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE password_reset_tokens SET used = TRUE
		WHERE id = $1 AND used = FALSE
	`, tokenID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, userID, newHash); err != nil {
		return err
	}

	return tx.Commit()
}
