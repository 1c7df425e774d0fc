package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sernion/mark-backend/internal/models"
)

type authFixture struct {
	users  *memUsers
	tokens *memTokens
	audit  *memAudit
	auth   *Auth
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newMemUsers()
	tokens := newMemTokens()
	audit := &memAudit{}
	auth := NewAuth(users, newMemProfiles(), NewAccountGuard(users), tokens, NewLoginAuditor(audit))
	return &authFixture{users: users, tokens: tokens, audit: audit, auth: auth}
}

func (f *authFixture) register(t *testing.T, username, email, password string) *models.User {
	t.Helper()
	user, token, err := f.auth.Register(context.Background(), RegisterParams{
		Username: username,
		Email:    email,
		Password: password,
	}, "192.0.2.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return user
}

func waitForAudit(t *testing.T, audit *memAudit, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return audit.count() >= n },
		2*time.Second, 10*time.Millisecond)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice", "alice@example.com", "password123x")
	waitForAudit(t, f.audit, 1)
	assert.True(t, f.audit.last().Successful)

	user, token, err := f.auth.Login(context.Background(), "alice", "password123x", "192.0.2.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, token)
	assert.NotNil(t, user.LastLoginAt)

	waitForAudit(t, f.audit, 2)
	rec := f.audit.last()
	assert.True(t, rec.Successful)
	assert.Equal(t, user.ID.String(), rec.UserID)
	assert.Equal(t, "192.0.2.1", rec.IPAddress)
}

func TestLoginByEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice", "alice@example.com", "password123x")

	_, token, err := f.auth.Login(context.Background(), "alice@example.com", "password123x", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLoginTokenIsStableAcrossLogins(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice", "alice@example.com", "password123x")

	_, first, err := f.auth.Login(context.Background(), "alice", "password123x", "", "")
	require.NoError(t, err)
	_, second, err := f.auth.Login(context.Background(), "alice", "password123x", "", "")
	require.NoError(t, err)
	assert.Equal(t, first, second, "logging in again must not rotate the token")
}

func TestLoginUnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.auth.Login(context.Background(), "ghost", "whatever123", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// No account means nothing to audit against.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.audit.count())
}

func TestLoginWrongPasswordIncrementsCounter(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "alice", "alice@example.com", "password123x")

	_, _, err := f.auth.Login(context.Background(), "alice", "wrongpassword", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, f.users.get(user.ID).FailedLoginAttempts)

	waitForAudit(t, f.audit, 2)
	assert.False(t, f.audit.last().Successful)
}

func TestLoginLocksAfterMaxFailures(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "alice", "alice@example.com", "password123x")

	for i := 0; i < MaxFailedAttempts; i++ {
		_, _, err := f.auth.Login(context.Background(), "alice", "wrongpassword", "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	stored := f.users.get(user.ID)
	assert.Equal(t, MaxFailedAttempts, stored.FailedLoginAttempts)
	require.NotNil(t, stored.LockedUntil)

	// Correct password on a locked account: rejected, counter untouched.
	_, _, err := f.auth.Login(context.Background(), "alice", "password123x", "", "")
	assert.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, MaxFailedAttempts, f.users.get(user.ID).FailedLoginAttempts)
}

func TestLoginAfterLockExpiryResets(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "alice", "alice@example.com", "password123x")

	for i := 0; i < MaxFailedAttempts; i++ {
		f.auth.Login(context.Background(), "alice", "wrongpassword", "", "")
	}

	// Simulate the lock having expired.
	past := time.Now().Add(-time.Minute)
	stored := f.users.get(user.ID)
	stored.LockedUntil = &past
	f.users.add(stored)

	loggedIn, token, err := f.auth.Login(context.Background(), "alice", "password123x", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Zero(t, loggedIn.FailedLoginAttempts)
	assert.Nil(t, f.users.get(user.ID).LockedUntil)
}

func TestLoginDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "alice", "alice@example.com", "password123x")

	stored := f.users.get(user.ID)
	stored.IsActive = false
	f.users.add(stored)

	_, _, err := f.auth.Login(context.Background(), "alice", "password123x", "", "")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "alice", "alice@example.com", "password123x")

	_, token, err := f.auth.Login(context.Background(), "alice", "password123x", "", "")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(context.Background(), user.ID))
	_, ok, err := f.tokens.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice", "alice@example.com", "password123x")

	_, _, err := f.auth.Register(context.Background(), RegisterParams{
		Username: "alice",
		Email:    "other@example.com",
		Password: "password123x",
	}, "", "")
	assert.Error(t, err)
}
