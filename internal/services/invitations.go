package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/store"
)

const (
	// InvitationTTL is how long a project invitation stays acceptable.
	InvitationTTL = 7 * 24 * time.Hour

	invitationTokenLength = 32
)

var (
	// ErrInvitationInvalid covers unknown, resolved, and expired invitations.
	ErrInvitationInvalid = errors.New("invalid or expired invitation")
	// ErrInvitationForbidden is returned when the caller's email does not
	// match the invitee address.
	ErrInvitationForbidden = errors.New("invitation is addressed to a different account")
)

// InvitationStore is the persistence slice the invitation flow needs.
type InvitationStore interface {
	Create(ctx context.Context, i *models.ProjectInvitation) error
	ByToken(ctx context.Context, token string) (*models.ProjectInvitation, error)
	ListPendingForEmail(ctx context.Context, email string) ([]*models.ProjectInvitation, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, inviteeID *uuid.UUID) error
}

// CollaboratorAdder adds accepted invitees to the project.
type CollaboratorAdder interface {
	AddCollaborator(ctx context.Context, projectID, userID uuid.UUID, role string, at time.Time) error
}

// Invitations implements the project invitation lifecycle:
// pending -> {accepted, declined, expired}.
type Invitations struct {
	invitations InvitationStore
	projects    CollaboratorAdder
	mailer      Mailer
	frontendURL string
	now         func() time.Time
}

func NewInvitations(invitations InvitationStore, projects CollaboratorAdder, mailer Mailer, frontendURL string) *Invitations {
	return &Invitations{
		invitations: invitations,
		projects:    projects,
		mailer:      mailer,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

// Invite creates a pending invitation and emails the invitee. Email delivery
// is best-effort; the invitation exists either way and can be listed by the
// invitee in-app.
func (s *Invitations) Invite(ctx context.Context, project *models.Project, inviter *models.User, email, role string) (*models.ProjectInvitation, error) {
	token, err := randomToken(invitationTokenLength)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	inv := &models.ProjectInvitation{
		ID:           uuid.New(),
		ProjectID:    project.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
		InviterID:    inviter.ID,
		InviteeEmail: strings.ToLower(strings.TrimSpace(email)),
		Role:         role,
		Status:       models.InvitationPending,
		Token:        token,
		ExpiresAt:    now.Add(InvitationTTL),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}

	inviteURL := s.frontendURL + "/invitations?token=" + token
	if err := s.mailer.SendProjectInvitation(inv.InviteeEmail, inviter.DisplayName(), project.Name, inviteURL); err != nil {
		log.Printf("invitation email to %s failed: %v", inv.InviteeEmail, err)
	}
	return inv, nil
}

// PendingFor lists open invitations addressed to the email.
func (s *Invitations) PendingFor(ctx context.Context, email string) ([]*models.ProjectInvitation, error) {
	return s.invitations.ListPendingForEmail(ctx, email)
}

// resolve loads a pending, unexpired invitation addressed to the user.
func (s *Invitations) resolve(ctx context.Context, token string, user *models.User) (*models.ProjectInvitation, error) {
	inv, err := s.invitations.ByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvitationInvalid
		}
		return nil, err
	}
	if inv.Status != models.InvitationPending {
		return nil, ErrInvitationInvalid
	}
	if inv.Expired(s.now()) {
		if err := s.invitations.SetStatus(ctx, inv.ID, models.InvitationExpired, nil); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, ErrInvitationInvalid
	}
	if !strings.EqualFold(inv.InviteeEmail, user.Email) {
		return nil, ErrInvitationForbidden
	}
	return inv, nil
}

// Accept resolves the invitation and adds the user as a collaborator with
// the invited role.
func (s *Invitations) Accept(ctx context.Context, token string, user *models.User) (*models.ProjectInvitation, error) {
	inv, err := s.resolve(ctx, token, user)
	if err != nil {
		return nil, err
	}
	if err := s.invitations.SetStatus(ctx, inv.ID, models.InvitationAccepted, &user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvitationInvalid
		}
		return nil, err
	}
	if err := s.projects.AddCollaborator(ctx, inv.ProjectID, user.ID, inv.Role, s.now().UTC()); err != nil {
		return nil, err
	}
	inv.Status = models.InvitationAccepted
	inv.InviteeID = &user.ID
	return inv, nil
}

// Decline resolves the invitation and marks it declined.
func (s *Invitations) Decline(ctx context.Context, token string, user *models.User) error {
	inv, err := s.resolve(ctx, token, user)
	if err != nil {
		return err
	}
	if err := s.invitations.SetStatus(ctx, inv.ID, models.InvitationDeclined, &user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvitationInvalid
		}
		return err
	}
	return nil
}
