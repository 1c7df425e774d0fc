package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/store"
)

type memInvitations struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.ProjectInvitation
}

func newMemInvitations() *memInvitations {
	return &memInvitations{byID: map[uuid.UUID]*models.ProjectInvitation{}}
}

func (m *memInvitations) Create(ctx context.Context, i *models.ProjectInvitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *i
	m.byID[i.ID] = &cp
	return nil
}

func (m *memInvitations) ByToken(ctx context.Context, token string) (*models.ProjectInvitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.byID {
		if i.Token == token {
			cp := *i
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memInvitations) ListPendingForEmail(ctx context.Context, email string) ([]*models.ProjectInvitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ProjectInvitation
	for _, i := range m.byID {
		if i.InviteeEmail == email && i.Status == models.InvitationPending {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memInvitations) SetStatus(ctx context.Context, id uuid.UUID, status string, inviteeID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok || i.Status != models.InvitationPending {
		return store.ErrNotFound
	}
	i.Status = status
	if inviteeID != nil {
		i.InviteeID = inviteeID
	}
	return nil
}

type memCollaborators struct {
	mu    sync.Mutex
	roles map[uuid.UUID]map[uuid.UUID]string
}

func newMemCollaborators() *memCollaborators {
	return &memCollaborators{roles: map[uuid.UUID]map[uuid.UUID]string{}}
}

func (m *memCollaborators) AddCollaborator(ctx context.Context, projectID, userID uuid.UUID, role string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[projectID] == nil {
		m.roles[projectID] = map[uuid.UUID]string{}
	}
	m.roles[projectID][userID] = role
	return nil
}

func (m *memCollaborators) role(projectID, userID uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[projectID][userID]
}

type invitationFixture struct {
	store   *memInvitations
	collabs *memCollaborators
	svc     *Invitations
	project *models.Project
	owner   *models.User
	invitee *models.User
}

func newInvitationFixture() *invitationFixture {
	f := &invitationFixture{
		store:   newMemInvitations(),
		collabs: newMemCollaborators(),
		owner:   &models.User{ID: uuid.New(), Username: "owner", Email: "owner@example.com"},
		invitee: &models.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com"},
	}
	f.project = &models.Project{ID: uuid.New(), Name: "Speech Corpus", OwnerID: f.owner.ID}
	f.svc = NewInvitations(f.store, f.collabs, LogMailer{}, "http://localhost:3000")
	return f
}

func TestInvitationAcceptFlow(t *testing.T) {
	ctx := context.Background()
	f := newInvitationFixture()

	inv, err := f.svc.Invite(ctx, f.project, f.owner, "Bob@Example.com", models.RoleAnnotator)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", inv.InviteeEmail)
	assert.Equal(t, models.InvitationPending, inv.Status)

	pending, err := f.svc.PendingFor(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	accepted, err := f.svc.Accept(ctx, inv.Token, f.invitee)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, accepted.Status)
	assert.Equal(t, models.RoleAnnotator, f.collabs.role(f.project.ID, f.invitee.ID))

	// Accept is single-shot.
	_, err = f.svc.Accept(ctx, inv.Token, f.invitee)
	assert.ErrorIs(t, err, ErrInvitationInvalid)
}

func TestInvitationDecline(t *testing.T) {
	ctx := context.Background()
	f := newInvitationFixture()

	inv, err := f.svc.Invite(ctx, f.project, f.owner, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)

	require.NoError(t, f.svc.Decline(ctx, inv.Token, f.invitee))
	assert.Empty(t, f.collabs.role(f.project.ID, f.invitee.ID))

	_, err = f.svc.Accept(ctx, inv.Token, f.invitee)
	assert.ErrorIs(t, err, ErrInvitationInvalid)
}

func TestInvitationWrongRecipient(t *testing.T) {
	ctx := context.Background()
	f := newInvitationFixture()

	inv, err := f.svc.Invite(ctx, f.project, f.owner, "someone-else@example.com", models.RoleViewer)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, inv.Token, f.invitee)
	assert.ErrorIs(t, err, ErrInvitationForbidden)
}

func TestInvitationExpires(t *testing.T) {
	ctx := context.Background()
	f := newInvitationFixture()

	inv, err := f.svc.Invite(ctx, f.project, f.owner, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(InvitationTTL + time.Hour) }
	_, err = f.svc.Accept(ctx, inv.Token, f.invitee)
	assert.ErrorIs(t, err, ErrInvitationInvalid)

	got, err := f.store.ByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationExpired, got.Status)
}

func TestInvitationUnknownToken(t *testing.T) {
	f := newInvitationFixture()
	_, err := f.svc.Accept(context.Background(), "nosuchtoken", f.invitee)
	assert.ErrorIs(t, err, ErrInvitationInvalid)
}
