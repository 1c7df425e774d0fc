package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPasswordResetTokenValid(t *testing.T) {
	now := time.Now()
	tok := &PasswordResetToken{ExpiresAt: now.Add(24 * time.Hour)}

	assert.True(t, tok.Valid(now))
	assert.True(t, tok.Valid(tok.ExpiresAt), "valid exactly at expiry")
	assert.False(t, tok.Valid(tok.ExpiresAt.Add(time.Second)))

	tok.Used = true
	assert.False(t, tok.Valid(now), "used tokens never validate")
}
