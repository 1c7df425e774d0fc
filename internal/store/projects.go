package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

const projectColumns = `id, created_at, updated_at, name, description, project_type,
	status, owner_id, is_public, allow_anonymous_annotations`

// Projects is the Postgres-backed store for annotation projects and their
// collaborator memberships.
type Projects struct {
	db *sql.DB
}

func NewProjects(db *sql.DB) *Projects {
	return &Projects{db: db}
}

func scanProject(row *sql.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Name, &p.Description,
		&p.ProjectType, &p.Status, &p.OwnerID, &p.IsPublic, &p.AllowAnonymousAnnotations)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Projects) Create(ctx context.Context, p *models.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, created_at, updated_at, name, description,
			project_type, status, owner_id, is_public, allow_anonymous_annotations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.CreatedAt, p.UpdatedAt, p.Name, p.Description,
		p.ProjectType, p.Status, p.OwnerID, p.IsPublic, p.AllowAnonymousAnnotations)
	return err
}

func (s *Projects) ByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
}

// ListForUser returns projects the user owns or collaborates on, most
// recently updated first.
func (s *Projects) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT `+projectColumns+` FROM projects p
		LEFT JOIN project_collaborators pc ON pc.project_id = p.id
		WHERE p.owner_id = $1 OR pc.user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Name, &p.Description,
			&p.ProjectType, &p.Status, &p.OwnerID, &p.IsPublic, &p.AllowAnonymousAnnotations); err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (s *Projects) Update(ctx context.Context, p *models.Project) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name = $2, description = $3, status = $4, is_public = $5,
			allow_anonymous_annotations = $6, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Status, p.IsPublic, p.AllowAnonymousAnnotations)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Projects) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// AddCollaborator makes the user a project member; re-inviting an existing
// member updates the role.
func (s *Projects) AddCollaborator(ctx context.Context, projectID, userID uuid.UUID, role string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_collaborators (project_id, user_id, role, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`, projectID, userID, role, at)
	return err
}

// CollaboratorRole returns the user's role on the project, or ErrNotFound
// when the user is not a collaborator.
func (s *Projects) CollaboratorRole(ctx context.Context, projectID, userID uuid.UUID) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM project_collaborators WHERE project_id = $1 AND user_id = $2
	`, projectID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}
