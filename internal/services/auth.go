package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/store"
	"github.com/sernion/mark-backend/pkg/utils"
)

// Authentication errors. Messages are generic on purpose: callers never
// learn whether the username existed or only the password was wrong.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to too many failed attempts")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// AuthUserStore is the credential-store slice the auth flow needs.
type AuthUserStore interface {
	Create(ctx context.Context, u *models.User) error
	ByLogin(ctx context.Context, login string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ProfileCreator lazily creates the 1:1 profile row.
type ProfileCreator interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

// Auth implements registration and the login state machine:
//
//	START -> CREDENTIALS_CHECKED -> {LOCKED, INVALID, AUTHENTICATED}
type Auth struct {
	users    AuthUserStore
	profiles ProfileCreator
	guard    *AccountGuard
	tokens   TokenIssuer
	audit    *LoginAuditor
	now      func() time.Time
}

func NewAuth(users AuthUserStore, profiles ProfileCreator, guard *AccountGuard, tokens TokenIssuer, audit *LoginAuditor) *Auth {
	return &Auth{
		users:    users,
		profiles: profiles,
		guard:    guard,
		tokens:   tokens,
		audit:    audit,
		now:      time.Now,
	}
}

// RegisterParams carries validated registration input.
type RegisterParams struct {
	Username    string
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

// Register creates the user with a default profile and issues a bearer token
// so the account is usable immediately.
func (s *Auth) Register(ctx context.Context, p RegisterParams, ip, userAgent string) (*models.User, string, error) {
	hash, err := utils.HashPassword(p.Password)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     utils.NormalizeUsername(p.Username),
		Email:        utils.NormalizeEmail(p.Email),
		PasswordHash: hash,
		FullName:     p.FullName,
		PhoneNumber:  p.PhoneNumber,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	if _, err := s.profiles.GetOrCreate(ctx, user.ID); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.audit.Record(user.ID, ip, userAgent, true)
	return user, token, nil
}

// Login authenticates a username-or-email plus password pair.
//
// No credential match: the failure counter is incremented and a failed
// attempt is audited. Correct password on a locked account: rejected without
// touching the counter. Correct password on an active, unlocked account:
// counter reset, token issued, success audited.
func (s *Auth) Login(ctx context.Context, login, password, ip, userAgent string) (*models.User, string, error) {
	user, err := s.users.ByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	ok, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		if gerr := s.guard.RecordFailure(ctx, user); gerr != nil {
			return nil, "", gerr
		}
		s.audit.Record(user.ID, ip, userAgent, false)
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsActive {
		s.audit.Record(user.ID, ip, userAgent, false)
		return nil, "", ErrAccountDisabled
	}

	if s.guard.IsLocked(user) {
		s.audit.Record(user.ID, ip, userAgent, false)
		return nil, "", ErrAccountLocked
	}

	if err := s.guard.RecordSuccess(ctx, user); err != nil {
		return nil, "", err
	}
	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, "", err
	}
	user.LastLoginAt = &now

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.audit.Record(user.ID, ip, userAgent, true)
	return user, token, nil
}

// Logout revokes the user's bearer token. A request presenting the old
// token afterwards is unauthenticated.
func (s *Auth) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.Revoke(ctx, userID)
}
