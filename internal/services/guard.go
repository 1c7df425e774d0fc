package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

const (
	// MaxFailedAttempts is the failure count at which the account locks.
	MaxFailedAttempts = 5
	// LockoutDuration is how long a locked account stays locked.
	LockoutDuration = 15 * time.Minute
)

// GuardStore is the slice of the credential store the account guard needs.
// Every transition persists immediately; guard state is never cached.
type GuardStore interface {
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error)
	SetLockedUntil(ctx context.Context, id uuid.UUID, until time.Time) error
	ResetFailedAttempts(ctx context.Context, id uuid.UUID) error
}

// AccountGuard tracks failed login attempts and applies temporary lockout.
type AccountGuard struct {
	users GuardStore
	now   func() time.Time
}

func NewAccountGuard(users GuardStore) *AccountGuard {
	return &AccountGuard{users: users, now: time.Now}
}

// RecordFailure increments the user's failure counter and locks the account
// for LockoutDuration once the counter reaches MaxFailedAttempts. The
// increment is a single durable statement so concurrent failures rely on the
// datastore's row locking. The user struct is updated to match.
func (g *AccountGuard) RecordFailure(ctx context.Context, user *models.User) error {
	n, err := g.users.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		return err
	}
	user.FailedLoginAttempts = n

	if n >= MaxFailedAttempts && !user.Locked(g.now()) {
		until := g.now().Add(LockoutDuration)
		if err := g.users.SetLockedUntil(ctx, user.ID, until); err != nil {
			return err
		}
		user.LockedUntil = &until
	}
	return nil
}

// RecordSuccess resets the failure counter and clears any lockout.
func (g *AccountGuard) RecordSuccess(ctx context.Context, user *models.User) error {
	if err := g.users.ResetFailedAttempts(ctx, user.ID); err != nil {
		return err
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	return nil
}

// IsLocked reports whether the user's lockout is still in effect.
func (g *AccountGuard) IsLocked(user *models.User) bool {
	return user.Locked(g.now())
}
