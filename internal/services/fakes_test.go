package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/store"
)

// memUsers is an in-memory credential store covering the slices Auth,
// AccountGuard, and the reset flow need.
type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User

	lockCalls int
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[uuid.UUID]*models.User{}}
}

func (m *memUsers) add(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

func (m *memUsers) get(id uuid.UUID) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.users[id]
	return &cp
}

func (m *memUsers) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return store.ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return store.ErrDuplicateEmail
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) ByLogin(ctx context.Context, login string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (m *memUsers) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	u.FailedLoginAttempts++
	return u.FailedLoginAttempts, nil
}

func (m *memUsers) SetLockedUntil(ctx context.Context, id uuid.UUID, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LockedUntil = &until
	m.lockCalls++
	return nil
}

func (m *memUsers) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

// memProfiles satisfies ProfileCreator.
type memProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.UserProfile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: map[uuid.UUID]*models.UserProfile{}}
}

func (m *memProfiles) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	p := models.NewUserProfile(userID, time.Now().UTC())
	m.profiles[userID] = p
	return p, nil
}

// memTokens is a deterministic TokenIssuer: one stable token per user.
type memTokens struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]string
	byTok  map[string]uuid.UUID
	seq    int
}

func newMemTokens() *memTokens {
	return &memTokens{byUser: map[uuid.UUID]string{}, byTok: map[string]uuid.UUID{}}
}

func (m *memTokens) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok, ok := m.byUser[userID]; ok {
		return tok, nil
	}
	m.seq++
	tok := fmt.Sprintf("token-%d", m.seq)
	m.byUser[userID] = tok
	m.byTok[tok] = userID
	return tok, nil
}

func (m *memTokens) Resolve(ctx context.Context, token string) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byTok[token]
	return id, ok, nil
}

func (m *memTokens) Revoke(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok, ok := m.byUser[userID]; ok {
		delete(m.byTok, tok)
		delete(m.byUser, userID)
	}
	return nil
}

// memAudit records audit entries in memory.
type memAudit struct {
	mu      sync.Mutex
	records []models.LoginRecord
}

func (m *memAudit) Append(ctx context.Context, rec *models.LoginRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memAudit) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memAudit) last() models.LoginRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[len(m.records)-1]
}

// memResetTokens is an in-memory ResetTokenStore with one row per user and
// single-shot consumption. Consumed password hashes are written back into the
// linked memUsers store.
type memResetTokens struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*models.PasswordResetToken
	users  *memUsers
}

func newMemResetTokens(users *memUsers) *memResetTokens {
	return &memResetTokens{byUser: map[uuid.UUID]*models.PasswordResetToken{}, users: users}
}

func (m *memResetTokens) Upsert(ctx context.Context, t *models.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	cp.Used = false
	m.byUser[t.UserID] = &cp
	return nil
}

func (m *memResetTokens) ByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byUser {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memResetTokens) Consume(ctx context.Context, tokenID, userID uuid.UUID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byUser[userID]
	if !ok || t.ID != tokenID || t.Used {
		return store.ErrNotFound
	}
	t.Used = true

	m.users.mu.Lock()
	defer m.users.mu.Unlock()
	u, ok := m.users.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = newHash
	return nil
}
