package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

const invitationColumns = `id, project_id, created_at, updated_at, inviter_id,
	invitee_email, invitee_id, role, status, token, expires_at`

// Invitations is the Postgres-backed store for project invitations.
type Invitations struct {
	db *sql.DB
}

func NewInvitations(db *sql.DB) *Invitations {
	return &Invitations{db: db}
}

func scanInvitation(row *sql.Row) (*models.ProjectInvitation, error) {
	var i models.ProjectInvitation
	err := row.Scan(&i.ID, &i.ProjectID, &i.CreatedAt, &i.UpdatedAt, &i.InviterID,
		&i.InviteeEmail, &i.InviteeID, &i.Role, &i.Status, &i.Token, &i.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &i, nil
}

func (s *Invitations) Create(ctx context.Context, i *models.ProjectInvitation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_invitations (id, project_id, created_at, updated_at,
			inviter_id, invitee_email, role, status, token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, i.ID, i.ProjectID, i.CreatedAt, i.UpdatedAt,
		i.InviterID, i.InviteeEmail, i.Role, i.Status, i.Token, i.ExpiresAt)
	return err
}

func (s *Invitations) ByToken(ctx context.Context, token string) (*models.ProjectInvitation, error) {
	return scanInvitation(s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM project_invitations WHERE token = $1`, token))
}

// ListPendingForEmail returns pending invitations addressed to the email.
func (s *Invitations) ListPendingForEmail(ctx context.Context, email string) ([]*models.ProjectInvitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM project_invitations
		WHERE LOWER(invitee_email) = LOWER($1) AND status = $2
		ORDER BY created_at DESC
	`, email, models.InvitationPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []*models.ProjectInvitation
	for rows.Next() {
		var i models.ProjectInvitation
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.CreatedAt, &i.UpdatedAt, &i.InviterID,
			&i.InviteeEmail, &i.InviteeID, &i.Role, &i.Status, &i.Token, &i.ExpiresAt); err != nil {
			return nil, err
		}
		invitations = append(invitations, &i)
	}
	return invitations, rows.Err()
}

// SetStatus transitions the invitation, recording the resolved invitee when
// present. The pending-only guard keeps accept/decline single-shot.
func (s *Invitations) SetStatus(ctx context.Context, id uuid.UUID, status string, inviteeID *uuid.UUID) error {
	var res sql.Result
	var err error
	if inviteeID != nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE project_invitations
			SET status = $2, invitee_id = $3, updated_at = NOW()
			WHERE id = $1 AND status = $4
		`, id, status, *inviteeID, models.InvitationPending)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE project_invitations
			SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = $3
		`, id, status, models.InvitationPending)
	}
	if err != nil {
		return err
	}
	return checkAffected(res)
}
