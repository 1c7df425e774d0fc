package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is the single-use, time-limited credential for password
// recovery. At most one row exists per user; re-requesting a reset
// overwrites the previous token in place.
type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// Expired reports whether the token is past its expiry at now.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Valid reports whether the token can still be consumed: not used and not
// past expiry. A token presented exactly at ExpiresAt is still valid.
func (t *PasswordResetToken) Valid(now time.Time) bool {
	return !t.Used && !t.Expired(now)
}
