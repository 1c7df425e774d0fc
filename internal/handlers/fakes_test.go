package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/store"
)

// fakeUsers is an in-memory credential store implementing every user-store
// slice the auth and profile handlers consume.
type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeUsers) snapshot(id uuid.UUID) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.users[id]
	return &cp
}

func (f *fakeUsers) put(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return store.ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return store.ErrDuplicateEmail
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) ByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) ByLogin(ctx context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) Update(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	cp := *u
	cp.PasswordHash = existing.PasswordHash
	cp.FailedLoginAttempts = existing.FailedLoginAttempts
	cp.LockedUntil = existing.LockedUntil
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) EmailInUse(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (f *fakeUsers) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	u.FailedLoginAttempts++
	return u.FailedLoginAttempts, nil
}

func (f *fakeUsers) SetLockedUntil(ctx context.Context, id uuid.UUID, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LockedUntil = &until
	return nil
}

func (f *fakeUsers) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

// fakeProfiles satisfies both ProfileCreator and ProfileStore.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.UserProfile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[uuid.UUID]*models.UserProfile{}}
}

func (f *fakeProfiles) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	p := models.NewUserProfile(userID, time.Now().UTC())
	f.profiles[userID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Update(ctx context.Context, p *models.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.UserID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	f.profiles[p.UserID] = &cp
	return nil
}

// fakeTokens issues deterministic bearer tokens, one per user.
type fakeTokens struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]string
	byTok  map[string]uuid.UUID
	seq    int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byUser: map[uuid.UUID]string{}, byTok: map[string]uuid.UUID{}}
}

func (f *fakeTokens) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok, ok := f.byUser[userID]; ok {
		return tok, nil
	}
	f.seq++
	tok := fmt.Sprintf("tok-%d", f.seq)
	f.byUser[userID] = tok
	f.byTok[tok] = userID
	return tok, nil
}

func (f *fakeTokens) Resolve(ctx context.Context, token string) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byTok[token]
	return id, ok, nil
}

func (f *fakeTokens) Revoke(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok, ok := f.byUser[userID]; ok {
		delete(f.byTok, tok)
		delete(f.byUser, userID)
	}
	return nil
}

// fakeAudit swallows audit writes.
type fakeAudit struct{}

func (fakeAudit) Append(ctx context.Context, rec *models.LoginRecord) error { return nil }

// fakeResetTokens keeps one reset token per user, with write-back of the new
// password hash on consumption.
type fakeResetTokens struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*models.PasswordResetToken
	users  *fakeUsers
}

func newFakeResetTokens(users *fakeUsers) *fakeResetTokens {
	return &fakeResetTokens{byUser: map[uuid.UUID]*models.PasswordResetToken{}, users: users}
}

func (f *fakeResetTokens) Upsert(ctx context.Context, t *models.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	cp.Used = false
	f.byUser[t.UserID] = &cp
	return nil
}

func (f *fakeResetTokens) ByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byUser {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeResetTokens) Consume(ctx context.Context, tokenID, userID uuid.UUID, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byUser[userID]
	if !ok || t.ID != tokenID || t.Used {
		return store.ErrNotFound
	}
	t.Used = true
	return f.users.SetPasswordHash(ctx, userID, newHash)
}

// captureMailer records the last delivered URLs instead of sending.
type captureMailer struct {
	mu           sync.Mutex
	lastResetURL string
}

func (m *captureMailer) SendPasswordReset(to, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastResetURL = resetURL
	return nil
}

func (m *captureMailer) SendProjectInvitation(to, inviterName, projectName, inviteURL string) error {
	return nil
}

func (m *captureMailer) resetURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResetURL
}
