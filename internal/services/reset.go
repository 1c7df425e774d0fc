package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/store"
	"github.com/sernion/mark-backend/pkg/utils"
)

const (
	// ResetTokenLength is the length of the generated reset token.
	ResetTokenLength = 32
	// ResetTokenTTL is how long a reset token stays valid.
	ResetTokenTTL = 24 * time.Hour
)

// ErrResetTokenInvalid covers unknown, already-used, and expired tokens; the
// caller must not be able to tell which.
var ErrResetTokenInvalid = errors.New("invalid or expired reset token")

// ResetTokenStore is the persistence slice the reset issuer needs.
type ResetTokenStore interface {
	Upsert(ctx context.Context, t *models.PasswordResetToken) error
	ByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	Consume(ctx context.Context, tokenID, userID uuid.UUID, newHash string) error
}

// PasswordReset issues and consumes single-use password reset tokens.
type PasswordReset struct {
	tokens ResetTokenStore
	now    func() time.Time
}

func NewPasswordReset(tokens ResetTokenStore) *PasswordReset {
	return &PasswordReset{tokens: tokens, now: time.Now}
}

// Issue creates a reset token for the user. A previous token for the same
// user is overwritten in place rather than kept alongside.
func (s *PasswordReset) Issue(ctx context.Context, user *models.User) (*models.PasswordResetToken, error) {
	raw, err := randomToken(ResetTokenLength)
	if err != nil {
		return nil, fmt.Errorf("generating reset token: %w", err)
	}

	now := s.now().UTC()
	t := &models.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     raw,
		CreatedAt: now,
		ExpiresAt: now.Add(ResetTokenTTL),
	}
	if err := s.tokens.Upsert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate returns the token record when it is known, unused, and unexpired.
func (s *PasswordReset) Validate(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	t, err := s.tokens.ByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}
	if !t.Valid(s.now()) {
		return nil, ErrResetTokenInvalid
	}
	return t, nil
}

// Consume sets the owning user's password to newPassword and marks the token
// used, atomically. Returns the owner's ID so the caller can revoke live
// sessions. A consumed token fails validation on any later attempt.
func (s *PasswordReset) Consume(ctx context.Context, token, newPassword string) (uuid.UUID, error) {
	t, err := s.Validate(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.tokens.Consume(ctx, t.ID, t.UserID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the race against a concurrent confirm.
			return uuid.Nil, ErrResetTokenInvalid
		}
		return uuid.Nil, err
	}
	return t.UserID, nil
}
